// Package memory is an in-process spreadsheet mirror used when no Google
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finboard/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// Export appends the row unless one with the same transaction id exists.
func (m *Mirror) Export(_ context.Context, row sheets.Row) (string, error) {
	if row.TransactionID == "" {
		return "", fmt.Errorf("export row without transaction id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := sheets.FindRow(m.rows, row.TransactionID); i >= 0 {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	m.rows = append(m.rows, row.Values())
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) Remove(_ context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := sheets.FindRow(m.rows, transactionID); i >= 0 {
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
	}
	return nil
}

func (m *Mirror) ListRows(_ context.Context) ([]sheets.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sheets.Row, 0, len(m.rows))
	for _, cells := range m.rows {
		if r, ok := sheets.ParseRow(cells); ok {
			out = append(out, r)
		}
	}
	return out, nil
}
