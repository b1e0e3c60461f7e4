// Package memory is an in-process ledger store used for development and
// tests. Records live in maps guarded by a single mutex.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"
)

type exportState struct {
	done   bool
	errMsg string
}

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	txs        map[string]core.Transaction
	categories map[string]core.Category
	budgets    map[string]core.Budget
	exports    map[string]exportState
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:        time.Now,
		txs:        make(map[string]core.Transaction),
		categories: make(map[string]core.Category),
		budgets:    make(map[string]core.Budget),
		exports:    make(map[string]exportState),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) ListTransactions(_ context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.txs {
		if q.Matches(tx) {
			out = append(out, tx)
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	tx.ID = uuid.NewString()
	// Only the id is stored; display metadata is resolved on read.
	tx.Category = core.RefTo(tx.Category.Key())
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.txs[tx.ID] = tx
	s.exports[tx.ID] = exportState{}
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	delete(s.exports, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0)
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) CategoriesByIDs(_ context.Context, ownerID string, ids []string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.categories[id]; ok && c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b core.Budget) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, ownerID, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.NewString()
	b.Category = core.RefTo(b.Category.Key())
	b.CreatedAt = s.now()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[b.ID]
	if !ok || existing.OwnerID != b.OwnerID {
		return core.Budget{}, core.ErrNotFound
	}
	b.Category = core.RefTo(b.Category.Key())
	b.CreatedAt = existing.CreatedAt
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

// PendingExports returns transactions not yet exported, oldest first.
// Transactions whose last export failed are retried.
func (s *Store) PendingExports(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for id, st := range s.exports {
		if !st.done {
			out = append(out, s.txs[id])
		}
	}
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exports[id]; !ok {
		return core.ErrNotFound
	}
	s.exports[id] = exportState{done: true}
	return nil
}

func (s *Store) MarkExportError(_ context.Context, id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exports[id]; !ok {
		return core.ErrNotFound
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.exports[id] = exportState{errMsg: msg}
	return nil
}

func sortByDate(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
