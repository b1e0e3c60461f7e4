package services

import (
	"context"
	"fmt"
	"log/slog"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/store"
)

// EventPublisher delivers ledger change notifications.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerStore is the write and lookup side of the ledger backend.
type LedgerStore interface {
	store.TransactionReader
	store.TransactionWriter
	store.CategoryReader
	store.CategoryWriter
	store.BudgetReader
	store.BudgetWriter
}

// LedgerService validates and persists ledger records, then publishes an
// event for each change. A failed publish never fails the write; the export
// sweep picks up what the event missed.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
}

func NewLedgerService(s LedgerStore, publisher EventPublisher) *LedgerService {
	return &LedgerService{store: s, publisher: publisher}
}

func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", saved.ID,
		"owner_id", saved.OwnerID,
		"type", saved.Type,
		"amount_cents", saved.Amount.Cents)
	s.publish(ctx, amqp.TransactionCreated, saved.OwnerID, saved.ID)
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.TransactionDeleted, ownerID, id)
	return nil
}

// ListTransactions returns the owner's transactions with their categories
// populated. Transactions whose category is gone keep the raw id.
func (s *LedgerService) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	keys := ledger.CategoryKeys(txs)
	if len(keys) == 0 {
		return txs, nil
	}
	cats, err := s.store.CategoriesByIDs(ctx, q.OwnerID, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	byID := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		if c, ok := byID[tx.Category.Key()]; ok {
			tx.Category = core.RefFromCategory(c)
		}
		out[i] = tx
	}
	return out, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return saved, nil
}

// DeleteCategory removes the category only. Transactions and budgets keep
// the orphaned id.
func (s *LedgerService) DeleteCategory(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteCategory(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.publish(ctx, amqp.CategoryDeleted, ownerID, id)
	return nil
}

func (s *LedgerService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.publish(ctx, amqp.BudgetChanged, saved.OwnerID, saved.ID)
	return saved, nil
}

func (s *LedgerService) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.publish(ctx, amqp.BudgetChanged, saved.OwnerID, saved.ID)
	return saved, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteBudget(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.publish(ctx, amqp.BudgetChanged, ownerID, id)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, ownerID, id string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", "kind", kind)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(kind, ownerID, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"entity_id", id,
			"error", err)
	}
}
