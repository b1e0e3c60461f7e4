// Package ledger aggregates transaction snapshots into totals, month trends
// and per-category rollups.
//
// Every function here is total over any slice of transactions, including nil,
// and never mutates its input.
package ledger

import (
	"cmp"
	"slices"
	"strconv"

	"finboard/internal/core"
)

// Totals sums income and expenses separately. Net is Income - Expenses.
func Totals(txs []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expenses)
	return t
}

// MonthKey formats a bucket key: year, dash, 1-based month without zero
// padding ("2024-1").
func MonthKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// MonthlyTrend groups transactions by calendar month, taken from each date in
// its own location. Buckets appear in the order their month was first
// encountered in txs.
func MonthlyTrend(txs []core.Transaction) []core.MonthTrend {
	out := make([]core.MonthTrend, 0)
	index := make(map[string]int)
	for _, tx := range txs {
		y, m, _ := tx.Date.Date()
		key := MonthKey(y, int(m))
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.MonthTrend{Month: key, Year: y, MonthNum: int(m)})
		}
		switch tx.Type {
		case core.Income:
			out[i].Income = out[i].Income.Add(tx.Amount)
		case core.Expense:
			out[i].Expenses = out[i].Expenses.Add(tx.Amount)
		}
	}
	return out
}

// SortChronological orders a trend by year then month, in place.
func SortChronological(trend []core.MonthTrend) {
	slices.SortStableFunc(trend, func(a, b core.MonthTrend) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.MonthNum, b.MonthNum)
	})
}

// CategoryBreakdown sums amounts of the given type per category key and
// returns them sorted by amount, largest first. Ties keep first-grouped order.
// Transactions with a blank category ref are grouped under the empty key.
func CategoryBreakdown(txs []core.Transaction, typ core.TransactionType) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0)
	index := make(map[string]int)
	for _, tx := range txs {
		if tx.Type != typ {
			continue
		}
		key := tx.Category.Key()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.CategoryAmount{CategoryID: key})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	slices.SortStableFunc(out, func(a, b core.CategoryAmount) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
	return out
}

// CategoryKeys returns the distinct non-blank category keys referenced by
// txs, in first-seen order.
func CategoryKeys(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, tx := range txs {
		k := tx.Category.Key()
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Filter returns the transactions of the given type.
func Filter(txs []core.Transaction, typ core.TransactionType) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == typ {
			out = append(out, tx)
		}
	}
	return out
}
