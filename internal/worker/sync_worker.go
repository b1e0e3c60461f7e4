package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/sheets"
	"finboard/internal/store"
)

// UnknownCategory labels rows whose category no longer resolves.
const UnknownCategory = "Unknown"

const (
	categoryCacheSize = 512
	categoryCacheTTL  = 10 * time.Minute
)

// Store is what the worker needs from the ledger backend.
type Store interface {
	store.TransactionReader
	store.CategoryReader
	store.ExportQueue
}

// SyncWorker mirrors ledger transactions into the spreadsheet.
type SyncWorker struct {
	store     Store
	mirror    sheets.Mirror
	batchSize int
	// names maps owner/category id to display name.
	names cache.Cache[string]
}

func NewSyncWorker(s Store, mirror sheets.Mirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     s,
		mirror:    mirror,
		batchSize: batchSize,
		names:     cache.NewLRUCache[string](categoryCacheSize, categoryCacheTTL),
	}
}

// HandleEvent processes one ledger event from AMQP. Returning an error
// requeues the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"entity_id", msg.EntityID,
		"owner_id", msg.OwnerID)

	switch msg.Kind {
	case amqp.TransactionCreated:
		tx, err := w.store.GetTransaction(ctx, msg.OwnerID, msg.EntityID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before the worker got to it.
			slog.InfoContext(ctx, "Transaction gone before export", "transaction_id", msg.EntityID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		return w.export(ctx, tx)

	case amqp.TransactionDeleted:
		if err := w.mirror.Remove(ctx, msg.EntityID); err != nil {
			return fmt.Errorf("remove transaction row: %w", err)
		}
		slog.InfoContext(ctx, "Removed transaction from sheet", "transaction_id", msg.EntityID)
		return nil

	case amqp.CategoryDeleted:
		w.names.Delete(nameKey(msg.OwnerID, msg.EntityID))
		return nil

	default:
		// Budget changes do not affect exported rows.
		slog.DebugContext(ctx, "Ignoring ledger event", "kind", msg.Kind)
		return nil
	}
}

// ProcessPending exports transactions whose event was lost or whose last
// export failed.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck drains a larger backlog once when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.PendingExports(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))
	for _, tx := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.export(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "transaction_id", tx.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) export(ctx context.Context, tx core.Transaction) error {
	name, err := w.categoryName(ctx, tx)
	if err != nil {
		return err
	}

	ref, err := w.mirror.Export(ctx, sheets.RowFromTransaction(tx, name))
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, tx.ID, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("export to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, tx.ID); err != nil {
		// The row exists; the next sweep finds it by id and skips it.
		slog.ErrorContext(ctx, "Failed to mark as exported", "transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}

func (w *SyncWorker) categoryName(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.Category.Category != nil && tx.Category.Category.Name != "" {
		return tx.Category.Category.Name, nil
	}
	key := tx.Category.Key()
	if key == "" {
		return UnknownCategory, nil
	}
	if name, ok := w.names.Get(nameKey(tx.OwnerID, key)); ok {
		return name, nil
	}
	cats, err := w.store.CategoriesByIDs(ctx, tx.OwnerID, []string{key})
	if err != nil {
		return "", fmt.Errorf("resolve category: %w", err)
	}
	for _, c := range cats {
		if c.ID == key && c.Name != "" {
			w.names.Set(nameKey(tx.OwnerID, key), c.Name)
			return c.Name, nil
		}
	}
	// Misses are not cached.
	return UnknownCategory, nil
}

func nameKey(ownerID, categoryID string) string {
	return ownerID + "/" + categoryID
}
