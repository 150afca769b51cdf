package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/amqp"
	"finboard/internal/budget"
	"finboard/internal/core"
	"finboard/internal/history"
	"finboard/internal/metrics"
	"finboard/internal/sheets/memory"
	"finboard/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func fixedClock() time.Time {
	return time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T, seed core.Ledger, opts ...Option) (*LedgerService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	opts = append([]Option{WithClock(fixedClock), WithPublisher(pub)}, opts...)
	return NewLedgerService(memory.New(seed), budget.Default(), opts...), pub
}

func tx(date string, cents int64, category string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{Date: d, Amount: core.Money{Cents: cents}, Category: category}
}

func TestSubmitTransaction_GrowsLedgerAndBalance(t *testing.T) {
	tests := []struct {
		name   string
		input  Input
		amount int64
	}{
		{"whole amount", Input{Date: "2024-02-10", Amount: "12", Category: "Food"}, 1200},
		{"comma decimal", Input{Date: "2024-01-01", Amount: "3,75", Category: "Transport"}, 375},
		{"today", Input{Date: "2024-02-15", Amount: "0.01", Category: "Other"}, 1},
		{"unknown category", Input{Date: "2023-12-31", Amount: "99.99", Category: "Pets"}, 9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newTestService(t, core.Ledger{tx("2024-02-01", 1000, "Food")})
			ctx := context.Background()

			before, err := svc.RequestMetrics(ctx)
			require.NoError(t, err)

			res, err := svc.SubmitTransaction(ctx, tt.input)
			require.NoError(t, err)

			assert.Equal(t, before.Count+1, res.Metrics.Count)
			assert.Equal(t, before.TotalBalance.Cents+tt.amount, res.Metrics.TotalBalance.Cents)
			assert.Len(t, res.Ledger, 2)
			assert.Equal(t, tt.amount, res.Transaction.Amount.Cents)
			assert.NotZero(t, res.Transaction.ID)
			assert.Equal(t, []amqp.EventType{amqp.TransactionCreated}, pub.types())
			assert.Equal(t, uint64(1), svc.Version())
		})
	}
}

func TestSubmitTransaction_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		want  error
	}{
		{"zero", Input{Date: "2024-02-10", Amount: "0", Category: "Food"}, core.ErrInvalidAmount},
		{"negative", Input{Date: "2024-02-10", Amount: "-5", Category: "Food"}, core.ErrInvalidAmount},
		{"garbage", Input{Date: "2024-02-10", Amount: "abc", Category: "Food"}, core.ErrInvalidAmount},
		{"empty", Input{Date: "2024-02-10", Amount: "", Category: "Food"}, core.ErrInvalidAmount},
		{"tomorrow", Input{Date: "2024-02-16", Amount: "5", Category: "Food"}, core.ErrFutureDate},
		{"next year", Input{Date: "2025-01-01", Amount: "5", Category: "Food"}, core.ErrFutureDate},
		{"bad date", Input{Date: "15/02/2024", Amount: "5", Category: "Food"}, core.ErrMalformedDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newTestService(t, core.Ledger{tx("2024-02-01", 1000, "Food")})
			ctx := context.Background()

			_, err := svc.SubmitTransaction(ctx, tt.input)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsValidationError(err))

			l, err := svc.Ledger(ctx)
			require.NoError(t, err)
			assert.Len(t, l, 1)
			assert.Empty(t, pub.events)
			assert.Zero(t, svc.Version())
		})
	}
}

func TestSubmitTransaction_EmptyCategoryDefaults(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.SubmitTransaction(context.Background(), Input{Date: "2024-02-10", Amount: "4"})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategory, res.Transaction.Category)
}

func TestSubmitTransaction_BudgetAlert(t *testing.T) {
	seed := core.Ledger{
		tx("2024-02-03", 30000, "Food"),
		tx("2024-02-10", 18000, "Food"),
		tx("2024-01-20", 40000, "Food"), // last month, ignored
	}

	tests := []struct {
		name   string
		amount string
		alert  bool
	}{
		{"crosses limit", "30", true},
		{"reaches limit exactly", "20", false},
		{"stays under", "19.99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, seed)

			res, err := svc.SubmitTransaction(context.Background(), Input{Date: "2024-02-14", Amount: tt.amount, Category: "Food"})
			require.NoError(t, err)
			assert.Len(t, res.Ledger, 4, "alert never blocks insertion")
			if !tt.alert {
				assert.Nil(t, res.Alert)
				return
			}
			require.NotNil(t, res.Alert)
			assert.Equal(t, "Food", res.Alert.Category)
			assert.Equal(t, int64(48000), res.Alert.Spent.Cents)
			assert.Equal(t, "This expense will exceed your Food budget limit of $500.00", res.Alert.Message(svc.Symbol()))
		})
	}
}

func TestSubmitTransaction_PublishFailureDoesNotFail(t *testing.T) {
	svc, pub := newTestService(t, nil)
	pub.err = errors.New("broker down")

	res, err := svc.SubmitTransaction(context.Background(), Input{Date: "2024-02-10", Amount: "4", Category: "Food"})
	require.NoError(t, err)
	assert.Len(t, res.Ledger, 1)
	assert.Len(t, pub.events, 1)
}

func TestRequestMetrics_MonthlySpend(t *testing.T) {
	svc, _ := newTestService(t, core.Ledger{
		tx("2024-01-15", 5000, "Food"),
		tx("2024-02-01", 3000, "Food"),
	})

	snap, err := svc.RequestMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3000), snap.MonthlySpend.Cents)
	assert.Equal(t, int64(8000), snap.TotalBalance.Cents)
}

func TestRequestClear_SnapshotsThenClears(t *testing.T) {
	svc, pub := newTestService(t, core.Ledger{
		tx("2024-02-01", 1000, "Food"),
		tx("2024-02-02", 2000, "Transport"),
	})
	ctx := context.Background()

	entry, err := svc.RequestClear(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Len(t, entry.Transactions, 2)
	assert.Equal(t, "History from 2024-02-15 10:30", entry.Label())

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Empty(t, l)
	assert.Len(t, svc.History(), 1)
	assert.Equal(t, []amqp.EventType{amqp.LedgerCleared}, pub.types())
}

func TestRequestClear_EmptyLedgerSkipsSnapshot(t *testing.T) {
	svc, _ := newTestService(t, nil)

	entry, err := svc.RequestClear(context.Background())
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, svc.History())
}

func TestRequestClear_BlockedOnMalformedLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	require.NoError(t, os.WriteFile(path, []byte("not,a,ledger\n1,2,3\n"), 0o644))

	svc := NewLedgerService(storage.NewCSVStore(path), nil, WithClock(fixedClock))

	_, err := svc.RequestClear(context.Background())
	require.ErrorIs(t, err, core.ErrMalformedLedger)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not,a,ledger\n1,2,3\n", string(data), "corrupt file must be left alone")
	assert.Empty(t, svc.History())
}

func TestHistory_BoundedToFive(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		_, err := svc.SubmitTransaction(ctx, Input{Date: "2024-02-10", Amount: "1", Category: "Food"})
		require.NoError(t, err)
		_, err = svc.RequestClear(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.RenameHistory(0, string(rune('A'+i-1))))
	}

	entries := svc.History()
	require.Len(t, entries, history.MaxEntries)
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label()
	}
	assert.Equal(t, []string{"G", "F", "E", "D", "C"}, labels)
}

func TestRequestRestore_RoundTrip(t *testing.T) {
	seed := core.Ledger{
		tx("2024-01-15", 5000, "Food"),
		tx("2024-02-01", 3000, "Food"),
		tx("2024-02-11", 120000, "Housing"),
	}
	svc, pub := newTestService(t, seed)
	ctx := context.Background()

	before, err := svc.RequestMetrics(ctx)
	require.NoError(t, err)
	_, err = svc.RequestClear(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitTransaction(ctx, Input{Date: "2024-02-12", Amount: "7", Category: "Gifts"})
	require.NoError(t, err)

	after, err := svc.RequestRestore(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, svc.History(), 1, "restore keeps the entry")
	assert.Equal(t, amqp.LedgerRestored, pub.types()[len(pub.events)-1])
}

func TestRequestRestore_OutOfRange(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.RequestRestore(context.Background(), 0)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestDeleteTransaction_PreservesOrder(t *testing.T) {
	svc, pub := newTestService(t, core.Ledger{
		tx("2024-02-01", 100, "A"),
		tx("2024-02-02", 200, "B"),
		tx("2024-02-03", 300, "C"),
		tx("2024-02-04", 400, "D"),
	})
	ctx := context.Background()

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTransaction(ctx, l[1].ID))

	l, err = svc.Ledger(ctx)
	require.NoError(t, err)
	require.Len(t, l, 3)
	assert.Equal(t, []string{"A", "C", "D"}, []string{l[0].Category, l[1].Category, l[2].Category})
	assert.Equal(t, []amqp.EventType{amqp.TransactionDeleted}, pub.types())

	err = svc.DeleteTransaction(ctx, 999)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestEditTransaction(t *testing.T) {
	svc, pub := newTestService(t, core.Ledger{tx("2024-02-01", 100, "Food")})
	ctx := context.Background()
	l, _ := svc.Ledger(ctx)
	id := l[0].ID

	require.NoError(t, svc.EditTransaction(ctx, id, Input{Date: "2024-02-05", Amount: "2.50", Category: "Travel"}))
	l, _ = svc.Ledger(ctx)
	assert.Equal(t, "2024-02-05", l[0].Date.String())
	assert.Equal(t, int64(250), l[0].Amount.Cents)
	assert.Equal(t, "Travel", l[0].Category)
	assert.Equal(t, id, l[0].ID)
	assert.Equal(t, []amqp.EventType{amqp.TransactionUpdated}, pub.types())

	err := svc.EditTransaction(ctx, id, Input{Date: "2024-03-01", Amount: "1", Category: "Food"})
	assert.ErrorIs(t, err, core.ErrFutureDate)

	err = svc.EditTransaction(ctx, 42, Input{Date: "2024-02-01", Amount: "1", Category: "Food"})
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestTransactionsAndAnalytics(t *testing.T) {
	svc, _ := newTestService(t, core.Ledger{
		tx("2023-12-24", 5000, "Gifts"),
		tx("2024-01-15", 2000, "Food"),
		tx("2024-02-01", 3000, "Food"),
	})
	ctx := context.Background()

	from, _ := core.ParseDate("2024-01-01")
	l, err := svc.Transactions(ctx, metrics.Filter{From: from, Categories: []string{"Food"}})
	require.NoError(t, err)
	assert.Len(t, l, 2)

	view, err := svc.Analytics(ctx, metrics.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []metrics.Point{
		{Key: "2023", Amount: core.Money{Cents: 5000}},
		{Key: "2024", Amount: core.Money{Cents: 5000}},
	}, view.ByYear)
	require.NotEmpty(t, view.Budget)
	assert.Equal(t, "Food", view.Budget[0].Category)
	assert.Equal(t, int64(3000), view.Budget[0].Actual.Cents)
}

func TestBudgetOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget_limits.json")
	svc, _ := newTestService(t, nil, WithBudgetFile(path))
	ctx := context.Background()

	require.NoError(t, svc.SetBudgetLimit(ctx, "Food", "610,50"))
	assert.ErrorIs(t, svc.SetBudgetLimit(ctx, "Food", "-1"), core.ErrInvalidAmount)
	assert.ErrorIs(t, svc.SetBudgetLimit(ctx, "Food", "lots"), core.ErrInvalidAmount)

	added, err := svc.AddCategory(ctx, "Pets")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = svc.AddCategory(ctx, "Pets")
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, svc.SaveBudget(ctx))
	p, err := budget.LoadFile(path)
	require.NoError(t, err)
	limit, ok := p.Limit("Food")
	require.True(t, ok)
	assert.Equal(t, int64(61050), limit.Cents)
	_, ok = p.Limit("Pets")
	assert.True(t, ok)

	// callers get a copy
	svc.Policy().SetLimit("Food", core.Money{Cents: 1})
	limit, _ = svc.Policy().Limit("Food")
	assert.Equal(t, int64(61050), limit.Cents)
}

func TestSaveBudget_NoFile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.ErrorIs(t, svc.SaveBudget(context.Background()), ErrNoBudgetFile)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestClose_AggregatesErrors(t *testing.T) {
	svc, pub := newTestService(t, nil,
		WithCloser("store", closerFunc(func() error { return errors.New("disk gone") })),
		WithCloser("cache", closerFunc(func() error { return nil })))

	err := svc.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store: disk gone")
	assert.True(t, pub.closed)
}

// failingStore passes reads through to a memory store and fails writes
// with writeErr. With failReload set, reads after a successful Save fail.
type failingStore struct {
	*memory.Store
	writeErr   error
	failReload bool
	saved      bool
}

func (s *failingStore) Load(ctx context.Context) (core.Ledger, error) {
	if s.failReload && s.saved {
		return core.Ledger{}, fmt.Errorf("%w: read back", core.ErrStoreUnavailable)
	}
	return s.Store.Load(ctx)
}

func (s *failingStore) Save(ctx context.Context, l core.Ledger) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.saved = true
	return s.Store.Save(ctx, l)
}

func (s *failingStore) Append(ctx context.Context, t core.Transaction) (core.Ledger, error) {
	if s.writeErr != nil {
		l, _ := s.Store.Load(ctx)
		return l, s.writeErr
	}
	return s.Store.Append(ctx, t)
}

func (s *failingStore) Clear(ctx context.Context) (core.Ledger, error) {
	if s.writeErr != nil {
		l, _ := s.Store.Load(ctx)
		return l, s.writeErr
	}
	return s.Store.Clear(ctx)
}

var errDiskFull = fmt.Errorf("%w: disk full", core.ErrStoreUnavailable)

func TestRequestClear_FailedClearKeepsHistory(t *testing.T) {
	store := &failingStore{Store: memory.New(core.Ledger{tx("2024-02-01", 1000, "Food")})}
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, budget.Default(), WithClock(fixedClock), WithPublisher(pub))
	ctx := context.Background()

	// One good clear puts an entry in history.
	_, err := svc.RequestClear(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitTransaction(ctx, Input{Date: "2024-02-10", Amount: "4", Category: "Food"})
	require.NoError(t, err)
	version := svc.Version()

	store.writeErr = errDiskFull
	for i := 0; i < 3; i++ {
		entry, err := svc.RequestClear(ctx)
		require.ErrorIs(t, err, core.ErrStoreUnavailable)
		assert.Nil(t, entry)
	}

	assert.Len(t, svc.History(), 1)
	assert.Equal(t, version, svc.Version())
	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Len(t, l, 1)
	assert.Equal(t, []amqp.EventType{amqp.LedgerCleared, amqp.TransactionCreated}, pub.types())
}

func TestWriteFailuresAreRetryable(t *testing.T) {
	store := &failingStore{Store: memory.New(core.Ledger{tx("2024-02-01", 1000, "Food")}), writeErr: errDiskFull}
	svc := NewLedgerService(store, budget.Default(), WithClock(fixedClock))
	ctx := context.Background()

	_, err := svc.SubmitTransaction(ctx, Input{Date: "2024-02-10", Amount: "4", Category: "Food"})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)

	_, err = svc.RequestClear(ctx)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)

	// Restore needs an entry; take it while writes still work.
	store.writeErr = nil
	_, err = svc.RequestClear(ctx)
	require.NoError(t, err)
	store.writeErr = errDiskFull

	_, err = svc.RequestRestore(ctx, 0)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	assert.Empty(t, l)
	assert.Len(t, svc.History(), 1)
}

func TestRequestRestore_ReloadFailureIsNotAnError(t *testing.T) {
	store := &failingStore{Store: memory.New(core.Ledger{
		tx("2024-02-01", 1000, "Food"),
		tx("2024-02-02", 2500, "Transport"),
	})}
	svc := NewLedgerService(store, budget.Default(), WithClock(fixedClock))
	ctx := context.Background()

	before, err := svc.RequestMetrics(ctx)
	require.NoError(t, err)
	_, err = svc.RequestClear(ctx)
	require.NoError(t, err)

	store.failReload = true
	snap, err := svc.RequestRestore(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before.Count, snap.Count)
	assert.Equal(t, before.TotalBalance, snap.TotalBalance)
}
