// Package http serves the finboard JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/budget"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/middleware/trace"
	"finboard/internal/store"
)

const (
	defaultRequestTimeout = 7 * time.Second
	maxBodyBytes          = 64 << 10
	// HeaderUserID carries the authenticated owner, set by the upstream gateway.
	HeaderUserID = "X-User-ID"
)

// Analytics is the read-only dashboard façade.
type Analytics interface {
	ParsePeriod(raw string) int
	Summary(ctx context.Context, ownerID string, periodDays int) (analytics.Summary, error)
	SpendingByCategory(ctx context.Context, ownerID string, periodDays int) ([]analytics.CategoryTotal, error)
	IncomeByCategory(ctx context.Context, ownerID string, periodDays int) ([]analytics.CategoryTotal, error)
	BudgetProgress(ctx context.Context, ownerID string) ([]budget.Progress, error)
	BudgetProgressFor(ctx context.Context, ownerID, budgetID string) (budget.Progress, error)
	ExpenseReport(ctx context.Context, ownerID string) (analytics.ExpenseReport, error)
}

// Ledger is the write side of the API.
type Ledger interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error)
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string) error
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, ownerID, id string) error
}

// Pinger reports store readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// RequestTimeout bounds every API request. Defaults to 7s.
	RequestTimeout time.Duration
	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int
	Logger             *log.Logger
	// Location parses and renders calendar dates. Defaults to UTC.
	Location *time.Location
	// Now is the clock used for request defaults. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	analytics   Analytics
	ledger      Ledger
	ready       Pinger
	timeout     time.Duration
	loc         *time.Location
	now         func() time.Time
	logger      *log.StructuredLogger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, a Analytics, l Ledger, ready Pinger, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		analytics: a,
		ledger:    l,
		ready:     ready,
		timeout:   opts.RequestTimeout,
		loc:       opts.Location,
		now:       opts.Now,
		logger:    log.NewStructuredLogger(logger),
	}
	if opts.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(opts.RateLimitPerMinute, time.Minute)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/analytics/summary", s.withOwner(s.handleSummary))
	mux.HandleFunc("GET /api/analytics/spending-by-category", s.withOwner(s.handleSpendingByCategory))
	mux.HandleFunc("GET /api/analytics/income-by-category", s.withOwner(s.handleIncomeByCategory))
	mux.HandleFunc("GET /api/reports/expenses", s.withOwner(s.handleExpenseReport))

	mux.HandleFunc("GET /api/transactions", s.withOwner(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withOwner(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withOwner(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/categories", s.withOwner(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withOwner(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withOwner(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/budgets", s.withOwner(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withOwner(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/{id}", s.withOwner(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.withOwner(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.withOwner(s.handleDeleteBudget))

	var h http.Handler = mux
	h = s.withTimeout(h)
	h = s.withRateLimit(h)
	h = withSecurityHeaders(h)
	h = log.RequestIDMiddleware(trace.GetRequestID)(h)
	h = trace.NewMiddleware(extractClientIP, s.logger).Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter != nil && !s.rateLimiter.allow(extractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// withOwner rejects requests without an owner header.
func (s *Server) withOwner(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := ownerFromRequest(r)
		if ownerID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderUserID + " header"})
			return
		}
		next(w, r, ownerID)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ping(r.Context()); err != nil {
			s.logger.LogError(r.Context(), "Readiness check failed", err, log.ComponentStorage, log.OpRead, nil)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
