// Package sheets mirrors ledger transactions into a spreadsheet tab.
//
// Layout of the tab, one transaction per row:
//
//	A id | B date | C month | D type | E category | F description | G amount | H owner
package sheets

import (
	"fmt"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/ledger"
)

const dateLayout = "2006-01-02"

// Header is the first row of a freshly created tab.
var Header = []any{"ID", "Date", "Month", "Type", "Category", "Description", "Amount", "Owner"}

// Row is one exported transaction, already resolved to display values.
type Row struct {
	TransactionID string
	OwnerID       string
	Date          time.Time
	Type          core.TransactionType
	Category      string
	Description   string
	Amount        core.Money
}

// RowFromTransaction builds a row; categoryName is the resolved display name.
func RowFromTransaction(tx core.Transaction, categoryName string) Row {
	return Row{
		TransactionID: tx.ID,
		OwnerID:       tx.OwnerID,
		Date:          tx.Date,
		Type:          tx.Type,
		Category:      categoryName,
		Description:   tx.Description,
		Amount:        tx.Amount,
	}
}

// Values renders r as spreadsheet cells. The amount is written as a number
// with two decimals so sheet formulas can sum it.
func (r Row) Values() []any {
	y, m, _ := r.Date.Date()
	return []any{
		r.TransactionID,
		r.Date.Format(dateLayout),
		ledger.MonthKey(y, int(m)),
		string(r.Type),
		r.Category,
		r.Description,
		r.Amount.Float(),
		r.OwnerID,
	}
}

// ParseRow reads cells back into a Row. Header and malformed rows report false.
func ParseRow(cells []any) (Row, bool) {
	cols := ToStrings(cells)
	if len(cols) < 7 || cols[0] == "" || strings.EqualFold(cols[0], "id") {
		return Row{}, false
	}
	date, err := time.Parse(dateLayout, cols[1])
	if err != nil {
		return Row{}, false
	}
	typ, err := core.ParseTransactionType(cols[3])
	if err != nil {
		return Row{}, false
	}
	cents, err := core.ParseDecimalToCents(cols[6])
	if err != nil {
		return Row{}, false
	}
	r := Row{
		TransactionID: cols[0],
		Date:          date,
		Type:          typ,
		Category:      cols[4],
		Description:   cols[5],
		Amount:        core.Money{Cents: cents},
	}
	if len(cols) > 7 {
		r.OwnerID = cols[7]
	}
	return r, true
}

// FindRow returns the zero-based index of the row whose first cell equals
// transactionID, or -1.
func FindRow(values [][]any, transactionID string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == transactionID {
			return i
		}
	}
	return -1
}

func ToStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
