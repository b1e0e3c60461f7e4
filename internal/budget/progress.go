// Package budget computes how much of a budget's ceiling has been consumed
// by expenses inside its date window.
package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// MaxPercent caps ProgressPercent. Overspending shows only in Spent.
const MaxPercent = 100

var hundred = decimal.NewFromInt(100)

// Progress is a budget augmented with its consumption figures.
type Progress struct {
	Budget          core.Budget
	Spent           core.Money
	ProgressPercent float64
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time // midnight of the first day
	End   time.Time // midnight of the last day
}

// WindowOf normalizes a budget's dates to day boundaries in the location of
// its start date.
func WindowOf(b core.Budget) Window {
	loc := b.StartDate.Location()
	return Window{
		Start: core.DayStart(b.StartDate),
		End:   core.DayStart(b.EndDate.In(loc)),
	}
}

// Contains reports whether t falls on a day inside the window, both ends
// included. Time of day is ignored.
func (w Window) Contains(t time.Time) bool {
	day := core.DayStart(t.In(w.Start.Location()))
	return !day.Before(w.Start) && !day.After(w.End)
}

// Spent sums the expenses in txs that match the budget's category and fall
// inside its window. Category refs are compared by key, so raw ids and
// populated categories match alike.
func Spent(b core.Budget, txs []core.Transaction) core.Money {
	w := WindowOf(b)
	var spent core.Money
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		if !tx.Category.Same(b.Category) {
			continue
		}
		if !w.Contains(tx.Date) {
			continue
		}
		spent = spent.Add(tx.Amount)
	}
	return spent
}

// Percent returns spent/ceiling*100 rounded to 2 decimals and clamped to
// [0, MaxPercent]. A non-positive ceiling yields 0.
func Percent(spent, ceiling core.Money) float64 {
	if ceiling.Cents <= 0 || spent.Cents <= 0 {
		return 0
	}
	p := decimal.NewFromInt(spent.Cents).
		Mul(hundred).
		DivRound(decimal.NewFromInt(ceiling.Cents), 2)
	if p.GreaterThan(decimal.NewFromInt(MaxPercent)) {
		return MaxPercent
	}
	return p.InexactFloat64()
}

// Compute returns the progress of one budget against a transaction snapshot.
func Compute(b core.Budget, txs []core.Transaction) Progress {
	spent := Spent(b, txs)
	return Progress{
		Budget:          b,
		Spent:           spent,
		ProgressPercent: Percent(spent, b.Amount),
	}
}

// ComputeAll returns progress for every budget, preserving order.
func ComputeAll(budgets []core.Budget, txs []core.Transaction) []Progress {
	out := make([]Progress, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, Compute(b, txs))
	}
	return out
}
