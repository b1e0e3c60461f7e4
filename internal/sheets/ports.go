package sheets

import (
	"context"
)

// Ports for outbound spreadsheet adapters.
type (
	TransactionExporter interface {
		// Export appends one row and returns a reference to it.
		Export(ctx context.Context, row Row) (rowRef string, err error)
	}

	TransactionRemover interface {
		// Remove deletes the row for transactionID. Missing rows are not an error.
		Remove(ctx context.Context, transactionID string) error
	}

	RowLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}

	// Mirror is the full adapter the export worker drives.
	Mirror interface {
		TransactionExporter
		TransactionRemover
		RowLister
	}
)
