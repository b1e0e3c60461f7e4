package budget

import (
	"math/rand"
	"testing"
	"time"

	"finboard/internal/core"
)

func expense(cents int64, cat string, date time.Time) core.Transaction {
	return core.Transaction{
		OwnerID:  "u1",
		Amount:   core.Money{Cents: cents},
		Type:     core.Expense,
		Category: core.RefTo(cat),
		Date:     date,
	}
}

func januaryBudget(cat string, cents int64) core.Budget {
	return core.Budget{
		OwnerID:   "u1",
		Name:      "January",
		Category:  core.RefTo(cat),
		Amount:    core.Money{Cents: cents},
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	}
}

func TestComputeScenario(t *testing.T) {
	txs := []core.Transaction{
		expense(5000, "catA", core.NewDate(2024, 1, 5)),
		expense(3000, "catA", core.NewDate(2024, 1, 20)),
		{OwnerID: "u1", Amount: core.Money{Cents: 20000}, Type: core.Income, Category: core.RefTo("catB"), Date: core.NewDate(2024, 1, 10)},
	}
	got := Compute(januaryBudget("catA", 10000), txs)
	if got.Spent.Cents != 8000 {
		t.Fatalf("Spent = %d, want 8000", got.Spent.Cents)
	}
	if got.ProgressPercent != 80 {
		t.Fatalf("ProgressPercent = %v, want 80", got.ProgressPercent)
	}
}

func TestSpentBoundaries(t *testing.T) {
	b := januaryBudget("catA", 10000)
	tests := []struct {
		name  string
		date  time.Time
		count bool
	}{
		{"start day midnight", core.NewDate(2024, 1, 1), true},
		{"end day midnight", core.NewDate(2024, 1, 31), true},
		{"end day late evening", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), true},
		{"start day afternoon", time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), true},
		{"day before start", core.NewDate(2023, 12, 31), false},
		{"last second before start", time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), false},
		{"day after end", core.NewDate(2024, 2, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Spent(b, []core.Transaction{expense(1234, "catA", tt.date)})
			want := int64(0)
			if tt.count {
				want = 1234
			}
			if got.Cents != want {
				t.Errorf("Spent = %d, want %d", got.Cents, want)
			}
		})
	}
}

func TestSpentBudgetWithTimeOfDay(t *testing.T) {
	b := januaryBudget("catA", 10000)
	b.StartDate = time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	b.EndDate = time.Date(2024, 1, 31, 6, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		expense(100, "catA", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)),
		expense(200, "catA", time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC)),
	}
	if got := Spent(b, txs); got.Cents != 300 {
		t.Fatalf("Spent = %d, want 300", got.Cents)
	}
}

func TestSpentFilters(t *testing.T) {
	b := januaryBudget("catA", 10000)
	d := core.NewDate(2024, 1, 10)

	income := expense(999, "catA", d)
	income.Type = core.Income

	populated := expense(400, "", d)
	populated.Category = core.RefFromCategory(core.Category{ID: "catA", Name: "Food"})

	txs := []core.Transaction{
		expense(100, "catA", d),
		expense(700, "catB", d),
		expense(50, "", d),
		income,
		populated,
	}
	if got := Spent(b, txs); got.Cents != 500 {
		t.Fatalf("Spent = %d, want 500", got.Cents)
	}
}

func TestDeletedCategoryBudget(t *testing.T) {
	b := januaryBudget("gone", 10000)
	txs := []core.Transaction{expense(5000, "catA", core.NewDate(2024, 1, 5))}
	got := Compute(b, txs)
	if got.Spent.Cents != 0 || got.ProgressPercent != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		spent, ceiling int64
		want           float64
	}{
		{0, 10000, 0},
		{8000, 10000, 80},
		{10000, 10000, 100},
		{25000, 10000, 100},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{500, 0, 0},
		{500, -100, 0},
	}
	for _, tc := range cases {
		got := Percent(core.Money{Cents: tc.spent}, core.Money{Cents: tc.ceiling})
		if got != tc.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tc.spent, tc.ceiling, got, tc.want)
		}
	}
}

func TestPercentClampLaw(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		spent := core.Money{Cents: r.Int63n(1_000_000_000)}
		ceiling := core.Money{Cents: r.Int63n(1_000_000) - 1000}
		p := Percent(spent, ceiling)
		if p < 0 || p > MaxPercent {
			t.Fatalf("Percent(%d, %d) = %v out of range", spent.Cents, ceiling.Cents, p)
		}
	}
}

func TestComputeAllDoesNotMutate(t *testing.T) {
	budgets := []core.Budget{januaryBudget("catA", 10000), januaryBudget("catB", 5000)}
	txs := []core.Transaction{expense(6000, "catB", core.NewDate(2024, 1, 2))}
	before := budgets[1]

	got := ComputeAll(budgets, txs)
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[1].ProgressPercent != 100 || got[1].Spent.Cents != 6000 {
		t.Fatalf("overspent budget = %+v", got[1])
	}
	if budgets[1] != before {
		t.Fatalf("budget mutated")
	}
	if ComputeAll(nil, txs) == nil {
		t.Fatalf("ComputeAll(nil) should be empty non-nil")
	}
}
