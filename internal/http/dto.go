package http

import (
	"time"

	"finboard/internal/analytics"
	"finboard/internal/budget"
	"finboard/internal/core"
)

type monthView struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

type categoryView struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Amount float64 `json:"amount"`
}

type summaryView struct {
	PeriodDays        int            `json:"periodDays"`
	TotalIncome       float64        `json:"totalIncome"`
	TotalExpenses     float64        `json:"totalExpenses"`
	NetIncome         float64        `json:"netIncome"`
	MonthlyTrend      []monthView    `json:"monthlyTrend"`
	CategoryBreakdown []categoryView `json:"categoryBreakdown"`
	TransactionCount  int            `json:"transactionCount"`
}

type expenseReportView struct {
	TotalExpenses   float64 `json:"totalExpenses"`
	RemainingBudget float64 `json:"remainingBudget"`
}

type transactionView struct {
	ID          string           `json:"id"`
	Amount      float64          `json:"amount"`
	Type        string           `json:"type"`
	Category    core.CategoryRef `json:"category"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type categoryRecordView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type budgetRecordView struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Category  core.CategoryRef `json:"category"`
	Amount    float64          `json:"amount"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
}

type budgetView struct {
	budgetRecordView
	Spent           float64 `json:"spent"`
	ProgressPercent float64 `json:"progressPercent"`
}

func newCategoryViews(totals []analytics.CategoryTotal) []categoryView {
	out := make([]categoryView, 0, len(totals))
	for _, ct := range totals {
		out = append(out, categoryView{Name: ct.Name, Color: ct.Color, Amount: ct.Amount.Float()})
	}
	return out
}

func newSummaryView(sum analytics.Summary) summaryView {
	trend := make([]monthView, 0, len(sum.MonthlyTrend))
	for _, m := range sum.MonthlyTrend {
		trend = append(trend, monthView{Month: m.Month, Income: m.Income.Float(), Expenses: m.Expenses.Float()})
	}
	return summaryView{
		PeriodDays:        sum.PeriodDays,
		TotalIncome:       sum.TotalIncome.Float(),
		TotalExpenses:     sum.TotalExpenses.Float(),
		NetIncome:         sum.NetIncome.Float(),
		MonthlyTrend:      trend,
		CategoryBreakdown: newCategoryViews(sum.CategoryBreakdown),
		TransactionCount:  sum.TransactionCount,
	}
}

func newTransactionView(tx core.Transaction, loc *time.Location) transactionView {
	return transactionView{
		ID:          tx.ID,
		Amount:      tx.Amount.Float(),
		Type:        string(tx.Type),
		Category:    tx.Category,
		Date:        tx.Date.In(loc),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt.In(loc),
	}
}

func newCategoryRecordView(c core.Category, loc *time.Location) categoryRecordView {
	return categoryRecordView{ID: c.ID, Name: c.Name, Color: c.Color, CreatedAt: c.CreatedAt.In(loc)}
}

// newBudgetRecordView renders dates as calendar days in loc.
func newBudgetRecordView(b core.Budget, loc *time.Location) budgetRecordView {
	return budgetRecordView{
		ID:        b.ID,
		Name:      b.Name,
		Category:  b.Category,
		Amount:    b.Amount.Float(),
		StartDate: b.StartDate.In(loc).Format(dateLayout),
		EndDate:   b.EndDate.In(loc).Format(dateLayout),
	}
}

func newBudgetView(p budget.Progress, loc *time.Location) budgetView {
	return budgetView{
		budgetRecordView: newBudgetRecordView(p.Budget, loc),
		Spent:            p.Spent.Float(),
		ProgressPercent:  p.ProgressPercent,
	}
}
