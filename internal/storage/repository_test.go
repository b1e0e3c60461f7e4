package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"
)

func openTestSQLite(t *testing.T) *Repository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "finboard.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	runRepositoryTests(t, openTestSQLite(t))
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	repo, err := OpenPostgres(context.Background(), url, PostgresOptions{MaxRetries: 3, RetryDelay: time.Second})
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	runRepositoryTests(t, repo)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finboard.db")
	for i := 0; i < 2; i++ {
		repo, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		repo.Close()
	}
}

// runRepositoryTests exercises a repository that may share a database with
// other runs, so every case uses a fresh owner id.
func runRepositoryTests(t *testing.T, repo *Repository) {
	ctx := context.Background()

	t.Run("transactions are owner scoped and filtered", func(t *testing.T) {
		owner, other := uuid.NewString(), uuid.NewString()
		cat, err := repo.CreateCategory(ctx, core.Category{OwnerID: owner, Name: "Food", Color: "#f00"})
		if err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
		mk := func(ownerID string, typ core.TransactionType, cents int64, day int) core.Transaction {
			tx, err := repo.CreateTransaction(ctx, core.Transaction{
				OwnerID:  ownerID,
				Amount:   core.Money{Cents: cents},
				Type:     typ,
				Category: core.RefFromCategory(cat),
				Date:     core.NewDate(2024, 1, day),
			})
			if err != nil {
				t.Fatalf("CreateTransaction: %v", err)
			}
			return tx
		}
		late := mk(owner, core.Expense, 300, 20)
		early := mk(owner, core.Income, 100000, 5)
		mk(other, core.Expense, 999, 10)

		all, err := repo.ListTransactions(ctx, store.TransactionQuery{OwnerID: owner})
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if len(all) != 2 || all[0].ID != early.ID || all[1].ID != late.ID {
			t.Fatalf("expected [early, late] by date, got %+v", all)
		}
		if all[0].Category.Key() != cat.ID || all[0].Category.Category != nil {
			t.Errorf("expected raw category ref %q, got %+v", cat.ID, all[0].Category)
		}
		if !all[1].Date.Equal(core.NewDate(2024, 1, 20)) {
			t.Errorf("date round trip: got %v", all[1].Date)
		}

		expenses, err := repo.ListTransactions(ctx, store.TransactionQuery{OwnerID: owner, Type: core.Expense})
		if err != nil || len(expenses) != 1 || expenses[0].Amount.Cents != 300 {
			t.Fatalf("expense filter: %+v, %v", expenses, err)
		}

		window, err := repo.ListTransactions(ctx, store.TransactionQuery{
			OwnerID: owner,
			Since:   core.NewDate(2024, 1, 5),
			Until:   core.NewDate(2024, 1, 19),
		})
		if err != nil || len(window) != 1 || window[0].ID != early.ID {
			t.Fatalf("inclusive window: %+v, %v", window, err)
		}

		if _, err := repo.GetTransaction(ctx, other, late.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("foreign GetTransaction: expected ErrNotFound, got %v", err)
		}
		if err := repo.DeleteTransaction(ctx, other, late.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("foreign DeleteTransaction: expected ErrNotFound, got %v", err)
		}
		if err := repo.DeleteTransaction(ctx, owner, late.ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if _, err := repo.GetTransaction(ctx, owner, late.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("deleted transaction still readable: %v", err)
		}
	})

	t.Run("invalid writes are rejected", func(t *testing.T) {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			OwnerID: uuid.NewString(), Type: core.Expense, Category: core.RefTo("c"), Date: core.NewDate(2024, 1, 1),
		})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
		_, err = repo.CreateBudget(ctx, core.Budget{
			OwnerID: uuid.NewString(), Name: "b", Category: core.RefTo("c"), Amount: core.Money{Cents: 1},
			StartDate: core.NewDate(2024, 2, 1), EndDate: core.NewDate(2024, 1, 1),
		})
		if !errors.Is(err, core.ErrInvalidWindow) {
			t.Errorf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("category lookup and delete without cascade", func(t *testing.T) {
		owner := uuid.NewString()
		a, _ := repo.CreateCategory(ctx, core.Category{OwnerID: owner, Name: "B-Rent"})
		b, _ := repo.CreateCategory(ctx, core.Category{OwnerID: owner, Name: "A-Food"})
		foreign, _ := repo.CreateCategory(ctx, core.Category{OwnerID: uuid.NewString(), Name: "Other"})

		list, err := repo.ListCategories(ctx, owner)
		if err != nil || len(list) != 2 || list[0].ID != b.ID {
			t.Fatalf("ListCategories sorted by name: %+v, %v", list, err)
		}

		got, err := repo.CategoriesByIDs(ctx, owner, []string{a.ID, a.ID, foreign.ID, "missing", ""})
		if err != nil {
			t.Fatalf("CategoriesByIDs: %v", err)
		}
		if len(got) != 1 || got[0].ID != a.ID {
			t.Fatalf("expected only %s, got %+v", a.ID, got)
		}
		if empty, err := repo.CategoriesByIDs(ctx, owner, nil); err != nil || empty == nil || len(empty) != 0 {
			t.Fatalf("empty lookup: %+v, %v", empty, err)
		}

		tx, err := repo.CreateTransaction(ctx, core.Transaction{
			OwnerID: owner, Amount: core.Money{Cents: 10}, Type: core.Expense,
			Category: core.RefTo(a.ID), Date: core.NewDate(2024, 1, 1),
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		if err := repo.DeleteCategory(ctx, owner, a.ID); err != nil {
			t.Fatalf("DeleteCategory: %v", err)
		}
		kept, err := repo.GetTransaction(ctx, owner, tx.ID)
		if err != nil || kept.Category.Key() != a.ID {
			t.Fatalf("transaction should keep dangling ref: %+v, %v", kept, err)
		}
		if err := repo.DeleteCategory(ctx, owner, a.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("budget lifecycle", func(t *testing.T) {
		owner := uuid.NewString()
		b, err := repo.CreateBudget(ctx, core.Budget{
			OwnerID: owner, Name: "Groceries", Category: core.RefTo("cat-1"), Amount: core.Money{Cents: 10000},
			StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31),
		})
		if err != nil {
			t.Fatalf("CreateBudget: %v", err)
		}

		b.Name = "Food"
		b.Amount = core.Money{Cents: 20000}
		updated, err := repo.UpdateBudget(ctx, b)
		if err != nil {
			t.Fatalf("UpdateBudget: %v", err)
		}
		if updated.Name != "Food" || updated.Amount.Cents != 20000 || !updated.EndDate.Equal(core.NewDate(2024, 1, 31)) {
			t.Errorf("unexpected update result: %+v", updated)
		}

		foreign := b
		foreign.OwnerID = uuid.NewString()
		if _, err := repo.UpdateBudget(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("foreign update: expected ErrNotFound, got %v", err)
		}

		list, err := repo.ListBudgets(ctx, owner)
		if err != nil || len(list) != 1 || list[0].Category.Key() != "cat-1" {
			t.Fatalf("ListBudgets: %+v, %v", list, err)
		}
		if err := repo.DeleteBudget(ctx, owner, b.ID); err != nil {
			t.Fatalf("DeleteBudget: %v", err)
		}
		if _, err := repo.GetBudget(ctx, owner, b.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("deleted budget: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("export queue", func(t *testing.T) {
		owner := uuid.NewString()
		tx, err := repo.CreateTransaction(ctx, core.Transaction{
			OwnerID: owner, Amount: core.Money{Cents: 42}, Type: core.Income,
			Category: core.RefTo("salary"), Date: core.NewDate(2024, 3, 1),
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		pendingIDs := func() []string {
			pending, err := repo.PendingExports(ctx, 0)
			if err != nil {
				t.Fatalf("PendingExports: %v", err)
			}
			ids := make([]string, len(pending))
			for i, p := range pending {
				ids[i] = p.ID
			}
			return ids
		}

		if !slices.Contains(pendingIDs(), tx.ID) {
			t.Fatal("new transaction should be pending export")
		}
		if err := repo.MarkExportError(ctx, tx.ID, errors.New("quota exceeded")); err != nil {
			t.Fatalf("MarkExportError: %v", err)
		}
		if !slices.Contains(pendingIDs(), tx.ID) {
			t.Fatal("failed export should stay pending")
		}
		if err := repo.MarkExported(ctx, tx.ID); err != nil {
			t.Fatalf("MarkExported: %v", err)
		}
		if slices.Contains(pendingIDs(), tx.ID) {
			t.Fatal("exported transaction should leave the queue")
		}
		if err := repo.MarkExported(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("unknown id: expected ErrNotFound, got %v", err)
		}
	})
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name string
		d    dialect
		in   string
		want string
	}{
		{"sqlite untouched", sqliteDialect, "a = ? AND b = ?", "a = ? AND b = ?"},
		{"postgres numbered", postgresDialect, "a = ? AND b IN (?, ?)", "a = $1 AND b IN ($2, $3)"},
		{"no placeholders", postgresDialect, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.rebind(tt.in); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSQLiteTimeArgSortsLexically(t *testing.T) {
	rome := time.FixedZone("CET", 3600)
	a := sqliteDialect.timeArg(time.Date(2024, 1, 1, 0, 30, 0, 0, rome)).(string)
	b := sqliteDialect.timeArg(time.Date(2024, 1, 1, 0, 0, 0, 5, time.UTC)).(string)
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
	var got time.Time
	if err := (timeValue{&got}).Scan(b); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 5, time.UTC)) {
		t.Fatalf("round trip: got %v", got)
	}
}

func TestNormalizeDatabaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgresql://u:p@h:5432/db", "postgres://u:p@h:5432/db?sslmode=disable"},
		{"postgres://h/db?application_name=x", "postgres://h/db?application_name=x&sslmode=disable"},
		{"postgres://h/db?sslmode=require", "postgres://h/db?sslmode=require"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDatabaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
