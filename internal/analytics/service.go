// Package analytics turns per-owner ledger snapshots into the summary,
// category and budget views served by the API.
//
// Each call fetches a fresh snapshot from the store and runs the pure
// ledger and budget engines over it. Nothing is cached between calls.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/budget"
	"finboard/internal/core"
	"finboard/internal/ledger"
	"finboard/internal/store"
)

const (
	// DefaultPeriodDays applies when a period is absent, non-numeric or not positive.
	DefaultPeriodDays = 30
	// MaxPeriodDays is the longest look-back accepted; longer periods count
	// as invalid.
	MaxPeriodDays = 36500

	UnknownCategoryName  = "Unknown"
	UnknownCategoryColor = "#ccc"
)

// Reader is the slice of the ledger store the façade queries.
type Reader interface {
	store.TransactionReader
	store.CategoryReader
	store.BudgetReader
}

// Options tune the façade. The zero value is usable.
type Options struct {
	// DefaultPeriod replaces DefaultPeriodDays when positive.
	DefaultPeriod int
	// ChronologicalTrend sorts the monthly trend by year and month instead of
	// first-seen order.
	ChronologicalTrend bool
	// Location decides calendar months for the trend. Nil keeps each
	// transaction date's own location.
	Location *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store         Reader
	now           func() time.Time
	loc           *time.Location
	defaultPeriod int
	chronological bool
}

func NewService(r Reader, opts Options) *Service {
	s := &Service{
		store:         r,
		now:           opts.Now,
		loc:           opts.Location,
		defaultPeriod: opts.DefaultPeriod,
		chronological: opts.ChronologicalTrend,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultPeriod <= 0 || s.defaultPeriod > MaxPeriodDays {
		s.defaultPeriod = DefaultPeriodDays
	}
	return s
}

// CategoryTotal is a category-grouped sum resolved to display metadata.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Color      string
	Amount     core.Money
}

type Summary struct {
	PeriodDays        int
	Since             time.Time
	TotalIncome       core.Money
	TotalExpenses     core.Money
	NetIncome         core.Money
	MonthlyTrend      []core.MonthTrend
	CategoryBreakdown []CategoryTotal
	TransactionCount  int
}

type ExpenseReport struct {
	TotalExpenses   core.Money
	RemainingBudget core.Money
}

// ParsePeriod reads a day count from a query value. Anything that is not a
// positive integer no greater than MaxPeriodDays yields def.
func ParsePeriod(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 || n > MaxPeriodDays {
		return def
	}
	return n
}

// ParsePeriod applies the service's configured default.
func (s *Service) ParsePeriod(raw string) int {
	return ParsePeriod(raw, s.defaultPeriod)
}

// window returns the [since, now] range for a period, read from the clock
// at call time.
func (s *Service) window(periodDays int) (since, now time.Time, days int) {
	if periodDays <= 0 || periodDays > MaxPeriodDays {
		periodDays = s.defaultPeriod
	}
	now = s.now()
	return now.AddDate(0, 0, -periodDays), now, periodDays
}

func (s *Service) snapshot(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if s.loc == nil {
		return txs, nil
	}
	local := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.Date = tx.Date.In(s.loc)
		local[i] = tx
	}
	return local, nil
}

// Summary returns totals, the monthly trend and the expense breakdown for
// the last periodDays days.
func (s *Service) Summary(ctx context.Context, ownerID string, periodDays int) (Summary, error) {
	since, now, days := s.window(periodDays)
	txs, err := s.snapshot(ctx, store.TransactionQuery{OwnerID: ownerID, Since: since, Until: now})
	if err != nil {
		return Summary{}, err
	}

	breakdown, err := s.resolve(ctx, ownerID, ledger.CategoryBreakdown(txs, core.Expense))
	if err != nil {
		return Summary{}, err
	}

	totals := ledger.Totals(txs)
	trend := ledger.MonthlyTrend(txs)
	if s.chronological {
		ledger.SortChronological(trend)
	}

	slog.DebugContext(ctx, "Analytics summary computed",
		"owner_id", ownerID,
		"period_days", days,
		"transactions", len(txs),
		"months", len(trend))

	return Summary{
		PeriodDays:        days,
		Since:             since,
		TotalIncome:       totals.Income,
		TotalExpenses:     totals.Expenses,
		NetIncome:         totals.Net,
		MonthlyTrend:      trend,
		CategoryBreakdown: breakdown,
		TransactionCount:  len(txs),
	}, nil
}

// SpendingByCategory returns expense sums per category, largest first.
func (s *Service) SpendingByCategory(ctx context.Context, ownerID string, periodDays int) ([]CategoryTotal, error) {
	return s.byCategory(ctx, ownerID, periodDays, core.Expense)
}

// IncomeByCategory returns income sums per category, largest first.
func (s *Service) IncomeByCategory(ctx context.Context, ownerID string, periodDays int) ([]CategoryTotal, error) {
	return s.byCategory(ctx, ownerID, periodDays, core.Income)
}

func (s *Service) byCategory(ctx context.Context, ownerID string, periodDays int, typ core.TransactionType) ([]CategoryTotal, error) {
	since, now, _ := s.window(periodDays)
	txs, err := s.snapshot(ctx, store.TransactionQuery{OwnerID: ownerID, Type: typ, Since: since, Until: now})
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ownerID, ledger.CategoryBreakdown(txs, typ))
}

// resolve attaches name and color to each grouped amount with one batch
// category lookup. Ids without a matching category fall back to
// Unknown/#ccc.
func (s *Service) resolve(ctx context.Context, ownerID string, amounts []core.CategoryAmount) ([]CategoryTotal, error) {
	out := make([]CategoryTotal, 0, len(amounts))
	if len(amounts) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(amounts))
	for _, a := range amounts {
		if a.CategoryID != "" {
			ids = append(ids, a.CategoryID)
		}
	}

	byID := make(map[string]core.Category, len(ids))
	if len(ids) > 0 {
		cats, err := s.store.CategoriesByIDs(ctx, ownerID, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch categories: %w", err)
		}
		for _, c := range cats {
			byID[core.RefTo(c.ID).Key()] = c
		}
	}

	for _, a := range amounts {
		ct := CategoryTotal{
			CategoryID: a.CategoryID,
			Name:       UnknownCategoryName,
			Color:      UnknownCategoryColor,
			Amount:     a.Amount,
		}
		if c, ok := byID[a.CategoryID]; ok {
			if c.Name != "" {
				ct.Name = c.Name
			}
			if c.Color != "" {
				ct.Color = c.Color
			}
		}
		out = append(out, ct)
	}
	return out, nil
}

// BudgetProgress returns every budget of the owner with the amount spent
// inside its window.
func (s *Service) BudgetProgress(ctx context.Context, ownerID string) ([]budget.Progress, error) {
	var (
		budgets []core.Budget
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, store.TransactionQuery{OwnerID: ownerID, Type: core.Expense})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range budgets {
		budgets[i] = s.localBudget(budgets[i])
	}
	return budget.ComputeAll(budgets, txs), nil
}

// localBudget moves a budget's dates into the configured location so its
// day boundaries are the owner's calendar days, not the store's.
func (s *Service) localBudget(b core.Budget) core.Budget {
	if s.loc == nil {
		return b
	}
	b.StartDate = b.StartDate.In(s.loc)
	b.EndDate = b.EndDate.In(s.loc)
	return b
}

// BudgetProgressFor computes progress for a single budget.
func (s *Service) BudgetProgressFor(ctx context.Context, ownerID, budgetID string) (budget.Progress, error) {
	b, err := s.store.GetBudget(ctx, ownerID, budgetID)
	if err != nil {
		return budget.Progress{}, fmt.Errorf("get budget: %w", err)
	}
	b = s.localBudget(b)
	w := budget.WindowOf(b)
	txs, err := s.store.ListTransactions(ctx, store.TransactionQuery{
		OwnerID:    ownerID,
		Type:       core.Expense,
		CategoryID: b.Category.Key(),
		// Widened by a day on both sides; the calculator applies the exact
		// day boundaries.
		Since: w.Start.AddDate(0, 0, -1),
		Until: w.End.AddDate(0, 0, 2),
	})
	if err != nil {
		return budget.Progress{}, fmt.Errorf("list transactions: %w", err)
	}
	return budget.Compute(b, txs), nil
}

// ExpenseReport returns all-time expenses and what is left of the summed
// budget ceilings. RemainingBudget goes negative on overspending and is zero
// when the owner has no budgets.
func (s *Service) ExpenseReport(ctx context.Context, ownerID string) (ExpenseReport, error) {
	var (
		budgets []core.Budget
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, store.TransactionQuery{OwnerID: ownerID, Type: core.Expense})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ExpenseReport{}, err
	}

	report := ExpenseReport{TotalExpenses: ledger.Totals(txs).Expenses}
	if len(budgets) == 0 {
		return report, nil
	}
	var ceiling core.Money
	for _, b := range budgets {
		ceiling = ceiling.Add(b.Amount)
	}
	report.RemainingBudget = ceiling.Sub(report.TotalExpenses)
	return report, nil
}
