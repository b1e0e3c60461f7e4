package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/store"
)

// transactionQuery builds a listing filter from ?type=&from=&to=&category=.
// A date-only "to" includes the whole day.
func (s *Server) transactionQuery(r *http.Request, ownerID string) (store.TransactionQuery, error) {
	v := r.URL.Query()
	q := store.TransactionQuery{
		OwnerID:    ownerID,
		CategoryID: strings.TrimSpace(v.Get("category")),
	}
	if raw := strings.TrimSpace(v.Get("type")); raw != "" {
		typ, err := core.ParseTransactionType(raw)
		if err != nil {
			return store.TransactionQuery{}, err
		}
		q.Type = typ
	}
	if raw := v.Get("from"); raw != "" {
		since, err := parseDate(raw, s.loc)
		if err != nil {
			return store.TransactionQuery{}, fmt.Errorf("%w: from: %v", errBadRequest, err)
		}
		q.Since = since
	}
	if raw := v.Get("to"); raw != "" {
		until, err := parseDate(raw, s.loc)
		if err != nil {
			return store.TransactionQuery{}, fmt.Errorf("%w: to: %v", errBadRequest, err)
		}
		if len(strings.TrimSpace(raw)) == len(dateLayout) {
			until = until.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		q.Until = until
	}
	return q, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, ownerID string) {
	q, err := s.transactionQuery(r, ownerID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), q)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionView(tx, s.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := req.toTransaction(ownerID, s.loc, s.now())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionView(saved, s.loc))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.ledger.DeleteTransaction(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, ownerID string) {
	cats, err := s.ledger.ListCategories(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	out := make([]categoryRecordView, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryRecordView(c, s.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.ledger.CreateCategory(r.Context(), core.Category{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(req.Name),
		Color:   strings.TrimSpace(req.Color),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryRecordView(saved, s.loc))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.ledger.DeleteCategory(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, ownerID string) {
	progress, err := s.analytics.BudgetProgress(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	out := make([]budgetView, 0, len(progress))
	for _, p := range progress {
		out = append(out, newBudgetView(p, s.loc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	p, err := s.analytics.BudgetProgressFor(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetView(p, s.loc))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	b, err := req.toBudget(ownerID, s.loc)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.ledger.CreateBudget(r.Context(), b)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.writeBudget(w, r, http.StatusCreated, saved)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	b, err := req.toBudget(ownerID, s.loc)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	b.ID = r.PathValue("id")
	saved, err := s.ledger.UpdateBudget(r.Context(), b)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.writeBudget(w, r, http.StatusOK, saved)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := s.ledger.DeleteBudget(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeBudget answers a successful budget write. The write stands even when
// the progress read fails; the response then carries the stored record alone.
func (s *Server) writeBudget(w http.ResponseWriter, r *http.Request, status int, saved core.Budget) {
	p, err := s.analytics.BudgetProgressFor(r.Context(), saved.OwnerID, saved.ID)
	if err != nil {
		s.logger.LogError(r.Context(), "Budget progress unavailable after write", err, log.ComponentAnalytics, log.OpRead,
			log.NewFields().WithOwner(saved.OwnerID).WithBudget(saved.ID))
		writeJSON(w, status, newBudgetRecordView(saved, s.loc))
		return
	}
	writeJSON(w, status, newBudgetView(p, s.loc))
}
