package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finboard/internal/core"
)

const dateLayout = "2006-01-02"

func ownerFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

// amountInput accepts a JSON number or a decimal string ("12.50", "12,50").
type amountInput struct {
	raw json.RawMessage
}

func (a *amountInput) UnmarshalJSON(data []byte) error {
	a.raw = append(a.raw[:0], data...)
	return nil
}

func (a amountInput) Money() (core.Money, error) {
	raw := bytes.TrimSpace(a.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return core.Money{}, core.ErrInvalidAmount
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: cents}, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.MoneyFromFloat(f)
}

// parseDate accepts YYYY-MM-DD (midnight in loc) or an RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, core.ErrInvalidDate
}

type transactionRequest struct {
	Amount      amountInput      `json:"amount"`
	Type        string           `json:"type"`
	Category    core.CategoryRef `json:"category"`
	Date        string           `json:"date"`
	Description string           `json:"description"`
}

func (req transactionRequest) toTransaction(ownerID string, loc *time.Location, now time.Time) (core.Transaction, error) {
	amount, err := req.Amount.Money()
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date := now.In(loc)
	if strings.TrimSpace(req.Date) != "" {
		if date, err = parseDate(req.Date, loc); err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		OwnerID:     ownerID,
		Amount:      amount,
		Type:        typ,
		Category:    req.Category,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type budgetRequest struct {
	Name      string           `json:"name"`
	Category  core.CategoryRef `json:"category"`
	Amount    amountInput      `json:"amount"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
}

func (req budgetRequest) toBudget(ownerID string, loc *time.Location) (core.Budget, error) {
	amount, err := req.Amount.Money()
	if err != nil {
		return core.Budget{}, err
	}
	start, err := parseDate(req.StartDate, loc)
	if err != nil {
		return core.Budget{}, err
	}
	end, err := parseDate(req.EndDate, loc)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(req.Name),
		Category:  req.Category,
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
	}, nil
}
