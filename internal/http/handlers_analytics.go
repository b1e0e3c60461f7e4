package http

import (
	"net/http"

	"finboard/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, ownerID string) {
	days := s.analytics.ParsePeriod(r.URL.Query().Get("period"))
	sum, err := s.analytics.Summary(r.Context(), ownerID, days)
	if err != nil {
		s.writeError(w, r, log.OpSummary, err)
		return
	}
	s.logger.LogAnalytics(r.Context(), log.OpSummary, ownerID, sum.PeriodDays)
	writeJSON(w, http.StatusOK, newSummaryView(sum))
}

func (s *Server) handleSpendingByCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	days := s.analytics.ParsePeriod(r.URL.Query().Get("period"))
	totals, err := s.analytics.SpendingByCategory(r.Context(), ownerID, days)
	if err != nil {
		s.writeError(w, r, log.OpSpending, err)
		return
	}
	s.logger.LogAnalytics(r.Context(), log.OpSpending, ownerID, days)
	writeJSON(w, http.StatusOK, newCategoryViews(totals))
}

func (s *Server) handleIncomeByCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	days := s.analytics.ParsePeriod(r.URL.Query().Get("period"))
	totals, err := s.analytics.IncomeByCategory(r.Context(), ownerID, days)
	if err != nil {
		s.writeError(w, r, log.OpIncome, err)
		return
	}
	s.logger.LogAnalytics(r.Context(), log.OpIncome, ownerID, days)
	writeJSON(w, http.StatusOK, newCategoryViews(totals))
}

func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request, ownerID string) {
	rep, err := s.analytics.ExpenseReport(r.Context(), ownerID)
	if err != nil {
		s.writeError(w, r, log.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseReportView{
		TotalExpenses:   rep.TotalExpenses.Float(),
		RemainingBudget: rep.RemainingBudget.Float(),
	})
}
