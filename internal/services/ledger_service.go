package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/budget"
	"finboard/internal/core"
	"finboard/internal/history"
	applog "finboard/internal/log"
	"finboard/internal/metrics"
	"finboard/internal/sheets"
)

// ErrNoBudgetFile is returned by SaveBudget when no side file is configured.
var ErrNoBudgetFile = errors.New("no budget file configured")

// Input is raw transaction input as typed by the user.
type Input struct {
	Date     string
	Amount   string
	Category string
	Receipt  string
}

// SubmitResult is what the dashboard needs after an insertion.
type SubmitResult struct {
	Transaction core.Transaction
	Ledger      core.Ledger
	Metrics     metrics.Snapshot
	Alert       *budget.Alert
}

// AnalyticsView bundles the grouped series with budget vs actual.
type AnalyticsView struct {
	metrics.Analytics
	Budget []budget.CategoryBudget
}

// LedgerService owns the application state: the store, the budget policy,
// the history log and the event publisher. All calls are serialized.
type LedgerService struct {
	mu         sync.Mutex
	store      sheets.LedgerStore
	policy     *budget.Policy
	history    *history.Log
	publisher  amqp.Publisher
	now        func() time.Time
	budgetFile string
	currency   string
	version    uint64
	closers    []namedCloser
	logger     *applog.StructuredLogger
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithPublisher sets the ledger event publisher.
func WithPublisher(p amqp.Publisher) Option {
	return func(s *LedgerService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithHistory replaces the default history log.
func WithHistory(h *history.Log) Option {
	return func(s *LedgerService) { s.history = h }
}

// WithBudgetFile sets the side file used by SaveBudget.
func WithBudgetFile(path string) Option {
	return func(s *LedgerService) { s.budgetFile = path }
}

// WithCurrency sets the display currency code.
func WithCurrency(code string) Option {
	return func(s *LedgerService) { s.currency = strings.ToUpper(code) }
}

// WithCloser registers a resource closed by Close.
func WithCloser(name string, c io.Closer) Option {
	return func(s *LedgerService) {
		if c != nil {
			s.closers = append(s.closers, namedCloser{name: name, c: c})
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *applog.Logger) Option {
	return func(s *LedgerService) { s.logger = applog.NewStructuredLogger(l) }
}

func NewLedgerService(store sheets.LedgerStore, policy *budget.Policy, opts ...Option) *LedgerService {
	if policy == nil {
		policy = budget.Default()
	}
	s := &LedgerService{
		store:     store,
		policy:    policy,
		publisher: amqp.NopPublisher{},
		now:       time.Now,
		currency:  "USD",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = history.New(history.WithClock(s.now))
	}
	if s.logger == nil {
		s.logger = applog.NewStructuredLogger(applog.New(applog.DefaultConfig()))
	}
	return s
}

func (s *LedgerService) today() core.Date {
	return core.Today(s.now())
}

// Currency returns the display currency code.
func (s *LedgerService) Currency() string { return s.currency }

// Symbol returns the display currency symbol.
func (s *LedgerService) Symbol() string { return core.CurrencySymbol(s.currency) }

// Version increases on every successful mutation of the ledger. Caches of
// derived output compare it to decide whether to re-render.
func (s *LedgerService) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SubmitTransaction validates input, checks the budget against the ledger
// before insertion, appends the row and recomputes the metrics. An alert
// never blocks the insertion.
func (s *LedgerService) SubmitTransaction(ctx context.Context, in Input) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := core.Validate(in.Date, in.Amount, in.Category, s.today())
	if err != nil {
		return SubmitResult{}, err
	}

	before, err := s.store.Load(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit blocked: %w", err)
	}
	alert := s.policy.CheckAlert(v.Amount, v.Category, before, s.today())

	after, err := s.store.Append(ctx, v.Transaction(in.Receipt))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("save transaction: %w", err)
	}
	s.version++

	t := after[len(after)-1]
	s.logger.LogTransactionSubmitted(ctx, t.ID, t.Date.String(), t.Amount.Cents, t.Category, alert != nil)
	s.publish(ctx, amqp.TransactionCreated, t.ID, len(after))

	return SubmitResult{
		Transaction: t,
		Ledger:      after,
		Metrics:     metrics.Compute(after, s.policy, s.now()),
		Alert:       alert,
	}, nil
}

// RequestMetrics returns the current snapshot. The snapshot is always
// renderable; a non-nil error is a load warning to show next to it.
func (s *LedgerService) RequestMetrics(ctx context.Context) (metrics.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(ctx)
	return metrics.Compute(l, s.policy, s.now()), err
}

// Ledger returns a copy of the stored ledger.
func (s *LedgerService) Ledger(ctx context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

// RequestClear snapshots the ledger into history and empties the store.
// An empty ledger is cleared without a snapshot and the returned entry is
// nil. A ledger that cannot be read is left untouched.
func (s *LedgerService) RequestClear(ctx context.Context) (*history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear blocked: %w", err)
	}

	// History gets the snapshot only after the store is empty.
	if _, err := s.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear ledger: %w", err)
	}
	s.version++

	var entry *history.Entry
	if len(l) > 0 {
		e := s.history.Snapshot(l, "")
		entry = &e
	}

	slog.InfoContext(ctx, "Ledger cleared",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldLedgerRows, len(l),
		"snapshotted", entry != nil)
	s.publish(ctx, amqp.LedgerCleared, 0, len(l))
	return entry, nil
}

// RequestRestore replaces the stored ledger with a deep copy of history
// entry index. The entry stays in the log.
func (s *LedgerService) RequestRestore(ctx context.Context, index int) (metrics.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.history.Restore(index)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	if err := s.store.Save(ctx, l); err != nil {
		return metrics.Snapshot{}, fmt.Errorf("restore ledger: %w", err)
	}
	s.version++

	slog.InfoContext(ctx, "Ledger restored from history",
		applog.FieldComponent, applog.ComponentHistory,
		applog.FieldHistoryIndex, index,
		applog.FieldLedgerRows, len(l))
	s.publish(ctx, amqp.LedgerRestored, 0, len(l))

	// The restore is committed; a failed read-back falls back to the
	// ledger that was written.
	restored, err := s.store.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Reload after restore failed",
			applog.FieldComponent, applog.ComponentHistory,
			applog.FieldError, err)
		restored = l
	}
	return metrics.Compute(restored, s.policy, s.now()), nil
}

// EditTransaction changes date, amount and category of a row. The same
// validation as insertion applies; the receipt is kept.
func (s *LedgerService) EditTransaction(ctx context.Context, id int64, in Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := core.Validate(in.Date, in.Amount, in.Category, s.today())
	if err != nil {
		return err
	}
	if err := s.store.Edit(ctx, id, v.Date, v.Amount, v.Category); err != nil {
		return fmt.Errorf("edit transaction %d: %w", id, err)
	}
	s.version++

	slog.InfoContext(ctx, "Transaction edited",
		applog.NewFields().
			WithComponent(applog.ComponentLedger).
			WithOperation(applog.OpEdit).
			WithTransaction(id, v.Date.String(), v.Amount.Cents, v.Category).
			ToSlice()...)
	s.publish(ctx, amqp.TransactionUpdated, id, 0)
	return nil
}

// DeleteTransaction removes a row, keeping the order of the others.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.version++

	slog.InfoContext(ctx, "Transaction deleted",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldTransactionID, id)
	s.publish(ctx, amqp.TransactionDeleted, id, len(l))
	return nil
}

// Transactions returns the rows matching f, in stored order.
func (s *LedgerService) Transactions(ctx context.Context, f metrics.Filter) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(ctx)
	return f.Apply(l), err
}

// Analytics groups the rows matching f and compares this month's spend
// with the budget.
func (s *LedgerService) Analytics(ctx context.Context, f metrics.Filter) (AnalyticsView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.Load(ctx)
	return AnalyticsView{
		Analytics: metrics.Analyze(f.Apply(l)),
		Budget:    s.policy.Comparison(l, s.today()),
	}, err
}

// History lists the snapshots, newest first.
func (s *LedgerService) History() []history.Entry {
	return s.history.Entries()
}

// HistoryEntry views a snapshot without restoring it.
func (s *LedgerService) HistoryEntry(index int) (history.Entry, error) {
	return s.history.Get(index)
}

// RenameHistory relabels a snapshot. An empty name restores the timestamp label.
func (s *LedgerService) RenameHistory(index int, name string) error {
	return s.history.Rename(index, strings.TrimSpace(name))
}

// Policy returns a copy of the budget policy.
func (s *LedgerService) Policy() *budget.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Clone()
}

// SetBudgetLimit parses amount and sets the category's monthly limit.
func (s *LedgerService) SetBudgetLimit(ctx context.Context, category, amount string) error {
	limit, err := core.ParseMoney(strings.ReplaceAll(strings.TrimSpace(amount), ",", "."))
	if err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidAmount, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.policy.SetLimit(category, limit); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget limit set",
		applog.FieldComponent, applog.ComponentBudget,
		applog.FieldCategory, category,
		applog.FieldAmountCents, limit.Cents)
	return nil
}

// AddCategory registers a category with a zero limit. It reports whether
// the category is new.
func (s *LedgerService) AddCategory(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.policy.AddCategory(name, core.Money{})
	if err != nil {
		return false, err
	}
	if added {
		slog.InfoContext(ctx, "Budget category added",
			applog.FieldComponent, applog.ComponentBudget,
			applog.FieldCategory, strings.TrimSpace(name))
	}
	return added, nil
}

// HasBudgetFile reports whether SaveBudget has somewhere to write.
func (s *LedgerService) HasBudgetFile() bool { return s.budgetFile != "" }

// SaveBudget writes the policy to the side file.
func (s *LedgerService) SaveBudget(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.budgetFile == "" {
		return ErrNoBudgetFile
	}
	if err := budget.SaveFile(s.budgetFile, s.policy); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved",
		applog.FieldComponent, applog.ComponentBudget,
		"path", s.budgetFile,
		"categories", s.policy.Len())
	return nil
}

func (s *LedgerService) publish(ctx context.Context, typ amqp.EventType, txID int64, count int) {
	ev := amqp.NewLedgerEvent(typ, txID, count)
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		// The ledger is already saved; mirrors catch up on the next event.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", typ,
			applog.FieldTransactionID, txID,
			applog.FieldError, err)
	}
}

// Close releases the publisher and every registered resource.
func (s *LedgerService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	for _, nc := range s.closers {
		if err := nc.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", nc.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
