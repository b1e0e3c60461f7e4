package core

// Totals holds income, expense and net sums for a set of transactions.
type Totals struct {
	Income   Money
	Expenses Money
	Net      Money
}

// CategoryAmount represents an amount aggregated by category id.
// CategoryID may be empty when the grouped transactions carried a null ref.
type CategoryAmount struct {
	CategoryID string
	Amount     Money
}

// MonthTrend is the income/expense split for one calendar month.
type MonthTrend struct {
	Month    string // "2024-1", 1-based month, no zero padding
	Year     int
	MonthNum int // 1-12
	Income   Money
	Expenses Money
}
