// Package storage persists the ledger in SQL databases. SQLite (modernc) and
// Postgres (pgx) share one Repository and differ only in dialect.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"
)

const (
	exportPending  = "pending"
	exportDone     = "exported"
	exportFailed   = "error"
	maxExportError = 500
)

type Repository struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

var _ store.Store = (*Repository)(nil)

func newRepository(db *sql.DB, d dialect) *Repository {
	return &Repository{db: db, dialect: d, now: time.Now}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

// requireAffected maps a zero-row write to core.ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

const transactionColumns = `id, owner_id, amount_cents, type, category_id, date, description, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		typ, catID string
	)
	err := s.Scan(&tx.ID, &tx.OwnerID, &tx.Amount.Cents, &typ, &catID,
		timeValue{&tx.Date}, &tx.Description, timeValue{&tx.CreatedAt}, timeValue{&tx.UpdatedAt})
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Category = core.RefTo(catID)
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{q.OwnerID}
	)
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if !q.Since.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, r.dialect.timeArg(q.Since))
	}
	if !q.Until.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, r.dialect.timeArg(q.Until))
	}
	if q.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, q.CategoryID)
	}

	rows, err := r.query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE `+
		strings.Join(where, " AND ")+` ORDER BY date, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *Repository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	row := r.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := r.now().UTC()
	tx.ID = uuid.NewString()
	tx.Category = core.RefTo(tx.Category.Key())
	tx.Date = tx.Date.UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now

	_, err := r.exec(ctx, `INSERT INTO transactions (`+transactionColumns+`, export_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OwnerID, tx.Amount.Cents, string(tx.Type), tx.Category.Key(),
		r.dialect.timeArg(tx.Date), tx.Description, r.dialect.timeArg(now), r.dialect.timeArg(now), exportPending)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"backend", r.dialect.name,
		"transaction_id", tx.ID,
		"owner_id", tx.OwnerID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents)
	return tx, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.exec(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

func scanCategories(rows *sql.Rows) ([]core.Category, error) {
	defer rows.Close()
	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, timeValue{&c.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *Repository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.query(ctx, `SELECT id, owner_id, name, color, created_at FROM categories
		WHERE owner_id = ? ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return scanCategories(rows)
}

func (r *Repository) CategoriesByIDs(ctx context.Context, ownerID string, ids []string) ([]core.Category, error) {
	seen := make(map[string]bool, len(ids))
	args := []any{ownerID}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		args = append(args, id)
	}
	if len(args) == 1 {
		return []core.Category{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)-1), ", ")
	rows, err := r.query(ctx, `SELECT id, owner_id, name, color, created_at FROM categories
		WHERE owner_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("categories by ids: %w", err)
	}
	return scanCategories(rows)
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.now().UTC()
	_, err := r.exec(ctx, `INSERT INTO categories (id, owner_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Color, r.dialect.timeArg(c.CreatedAt))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	res, err := r.exec(ctx, `DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res)
}

const budgetColumns = `id, owner_id, name, category_id, amount_cents, start_date, end_date, created_at`

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b     core.Budget
		catID string
	)
	err := s.Scan(&b.ID, &b.OwnerID, &b.Name, &catID, &b.Amount.Cents,
		timeValue{&b.StartDate}, timeValue{&b.EndDate}, timeValue{&b.CreatedAt})
	if err != nil {
		return core.Budget{}, err
	}
	b.Category = core.RefTo(catID)
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := r.query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *Repository) GetBudget(ctx context.Context, ownerID, id string) (core.Budget, error) {
	b, err := scanBudget(r.queryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.ID = uuid.NewString()
	b.Category = core.RefTo(b.Category.Key())
	b.StartDate, b.EndDate = b.StartDate.UTC(), b.EndDate.UTC()
	b.CreatedAt = r.now().UTC()

	_, err := r.exec(ctx, `INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Name, b.Category.Key(), b.Amount.Cents,
		r.dialect.timeArg(b.StartDate), r.dialect.timeArg(b.EndDate), r.dialect.timeArg(b.CreatedAt))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.Category = core.RefTo(b.Category.Key())
	b.StartDate, b.EndDate = b.StartDate.UTC(), b.EndDate.UTC()

	res, err := r.exec(ctx, `UPDATE budgets SET name = ?, category_id = ?, amount_cents = ?, start_date = ?, end_date = ?
		WHERE id = ? AND owner_id = ?`,
		b.Name, b.Category.Key(), b.Amount.Cents, r.dialect.timeArg(b.StartDate), r.dialect.timeArg(b.EndDate),
		b.ID, b.OwnerID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return core.Budget{}, err
	}
	return r.GetBudget(ctx, b.OwnerID, b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	res, err := r.exec(ctx, `DELETE FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireAffected(res)
}

// PendingExports returns transactions not yet mirrored, oldest first.
// Failed exports stay pending and are retried.
func (r *Repository) PendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE export_status <> ? ORDER BY created_at, id`
	args := []any{exportDone}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pending exports: %w", err)
	}
	return collectTransactions(rows)
}

func (r *Repository) MarkExported(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `UPDATE transactions SET export_status = ?, export_error = '', exported_at = ? WHERE id = ?`,
		exportDone, r.dialect.timeArg(r.now()), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "transaction_id", id)
	return nil
}

func (r *Repository) MarkExportError(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxExportError {
		msg = msg[:maxExportError]
	}
	res, err := r.exec(ctx, `UPDATE transactions SET export_status = ?, export_error = ? WHERE id = ?`,
		exportFailed, msg, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "transaction_id", id, "error", msg)
	return nil
}
