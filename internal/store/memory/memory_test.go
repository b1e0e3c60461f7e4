package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/store"
)

func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore() *Store {
	s := New()
	s.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return s
}

func mustTx(t *testing.T, s *Store, owner string, typ core.TransactionType, cents int64, cat string, date time.Time) core.Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(context.Background(), core.Transaction{
		OwnerID: owner, Amount: core.Money{Cents: cents}, Type: typ,
		Category: core.RefTo(cat), Date: date,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestTransactionsScopedAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	mustTx(t, s, "u1", core.Expense, 100, "a", core.NewDate(2024, 1, 20))
	first := mustTx(t, s, "u1", core.Income, 500, "b", core.NewDate(2024, 1, 5))
	mustTx(t, s, "u2", core.Expense, 900, "a", core.NewDate(2024, 1, 10))

	all, err := s.ListTransactions(ctx, store.TransactionQuery{OwnerID: "u1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("expected 2 transactions ordered by date, got %+v", all)
	}

	exp, _ := s.ListTransactions(ctx, store.TransactionQuery{OwnerID: "u1", Type: core.Expense})
	if len(exp) != 1 || exp[0].Amount.Cents != 100 {
		t.Fatalf("type filter: %+v", exp)
	}

	since, _ := s.ListTransactions(ctx, store.TransactionQuery{OwnerID: "u1", Since: core.NewDate(2024, 1, 10)})
	if len(since) != 1 || since[0].Category.Key() != "a" {
		t.Fatalf("since filter: %+v", since)
	}

	if _, err := s.GetTransaction(ctx, "u2", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u2", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found deleting foreign transaction, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = s.ListTransactions(ctx, store.TransactionQuery{OwnerID: "u1"})
	if len(all) != 1 {
		t.Fatalf("expected 1 after delete, got %d", len(all))
	}
}

func TestCreateTransactionValidates(t *testing.T) {
	s := newTestStore()
	_, err := s.CreateTransaction(context.Background(), core.Transaction{OwnerID: "u1", Type: core.Expense})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCategoriesByIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	food, _ := s.CreateCategory(ctx, core.Category{OwnerID: "u1", Name: "Food", Color: "#f00"})
	rent, _ := s.CreateCategory(ctx, core.Category{OwnerID: "u1", Name: "Rent"})
	other, _ := s.CreateCategory(ctx, core.Category{OwnerID: "u2", Name: "Other"})

	got, err := s.CategoriesByIDs(ctx, "u1", []string{food.ID, "missing", other.ID, rent.ID})
	if err != nil {
		t.Fatalf("by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}

	if err := s.DeleteCategory(ctx, "u1", food.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := s.ListCategories(ctx, "u1")
	if len(list) != 1 || list[0].Name != "Rent" {
		t.Fatalf("list after delete: %+v", list)
	}
}

func TestDeleteCategoryKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	food, _ := s.CreateCategory(ctx, core.Category{OwnerID: "u1", Name: "Food"})
	mustTx(t, s, "u1", core.Expense, 100, food.ID, core.NewDate(2024, 1, 1))

	if err := s.DeleteCategory(ctx, "u1", food.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txs, _ := s.ListTransactions(ctx, store.TransactionQuery{OwnerID: "u1"})
	if len(txs) != 1 || txs[0].Category.Key() != food.ID {
		t.Fatalf("transaction should keep orphaned category id: %+v", txs)
	}
}

func TestBudgetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	b, err := s.CreateBudget(ctx, core.Budget{
		OwnerID: "u1", Name: "Food", Category: core.RefTo("food"),
		Amount: core.Money{Cents: 10000}, StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	b.Amount = core.Money{Cents: 20000}
	updated, err := s.UpdateBudget(ctx, b)
	if err != nil || updated.Amount.Cents != 20000 || !updated.CreatedAt.Equal(b.CreatedAt) {
		t.Fatalf("update: %+v %v", updated, err)
	}

	foreign := b
	foreign.OwnerID = "u2"
	if _, err := s.UpdateBudget(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign update, got %v", err)
	}

	inverted := b
	inverted.StartDate, inverted.EndDate = b.EndDate, b.StartDate
	if _, err := s.UpdateBudget(ctx, inverted); !errors.Is(err, core.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}

	if err := s.DeleteBudget(ctx, "u2", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteBudget(ctx, "u1", b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBudget(ctx, "u1", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestExportQueue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a := mustTx(t, s, "u1", core.Expense, 100, "a", core.NewDate(2024, 1, 1))
	b := mustTx(t, s, "u1", core.Expense, 200, "a", core.NewDate(2024, 1, 2))

	pending, _ := s.PendingExports(ctx, 10)
	if len(pending) != 2 || pending[0].ID != a.ID {
		t.Fatalf("pending: %+v", pending)
	}

	if err := s.MarkExported(ctx, a.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	if err := s.MarkExportError(ctx, b.ID, errors.New("quota")); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, _ = s.PendingExports(ctx, 10)
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("failed exports should stay pending: %+v", pending)
	}

	if err := s.MarkExported(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
