// Package store declares the ledger persistence ports shared by the memory,
// SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"finboard/internal/core"
)

// TransactionQuery filters transactions. Zero-valued fields are ignored,
// except OwnerID which is always required. Since and Until are inclusive.
type TransactionQuery struct {
	OwnerID    string
	Type       core.TransactionType
	Since      time.Time
	Until      time.Time
	CategoryID string
}

// Matches reports whether tx satisfies q. Backends that filter in memory use
// it so every backend applies the same predicate.
func (q TransactionQuery) Matches(tx core.Transaction) bool {
	if tx.OwnerID != q.OwnerID {
		return false
	}
	if q.Type != "" && tx.Type != q.Type {
		return false
	}
	if !q.Since.IsZero() && tx.Date.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && tx.Date.After(q.Until) {
		return false
	}
	if q.CategoryID != "" && tx.Category.Key() != q.CategoryID {
		return false
	}
	return true
}

// Ports for ledger persistence.
type (
	TransactionReader interface {
		// ListTransactions returns matching transactions ordered by date.
		ListTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// DeleteTransaction returns core.ErrNotFound when id is not owned by ownerID.
		DeleteTransaction(ctx context.Context, ownerID, id string) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		// CategoriesByIDs fetches the owner's categories with the given ids in
		// one round trip. Unknown ids are silently skipped.
		CategoriesByIDs(ctx context.Context, ownerID string, ids []string) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory never cascades to transactions or budgets.
		DeleteCategory(ctx context.Context, ownerID, id string) error
	}

	BudgetReader interface {
		ListBudgets(ctx context.Context, ownerID string) ([]core.Budget, error)
		GetBudget(ctx context.Context, ownerID, id string) (core.Budget, error)
	}

	BudgetWriter interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id string) error
	}

	// ExportQueue tracks which transactions still need mirroring to the
	// spreadsheet.
	ExportQueue interface {
		PendingExports(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkExported(ctx context.Context, id string) error
		MarkExportError(ctx context.Context, id string, cause error) error
	}

	// Store is the full ledger backend.
	Store interface {
		TransactionReader
		TransactionWriter
		CategoryReader
		CategoryWriter
		BudgetReader
		BudgetWriter
		ExportQueue
		Ping(ctx context.Context) error
		Close() error
	}
)
