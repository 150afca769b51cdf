package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func txn(date string, cents int64, category, receipt string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{Date: d, Amount: core.Money{Cents: cents}, Category: category, Receipt: receipt}
}

func sampleLedger() core.Ledger {
	return core.Ledger{
		txn("2024-01-15", 5000, "Food", ""),
		txn("2024-02-01", 3050, "Transport", "aGVsbG8="),
		txn("2023-12-31", 1, "Gifts, misc", ""),
	}
}

func stripIDs(l core.Ledger) core.Ledger {
	out := l.Clone()
	for i := range out {
		out[i].ID = 0
	}
	return out
}

func TestCSVStore_LoadMissingFile(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "none", "expenses.csv"))

	l, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.Empty(t, l)
}

func TestCSVStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "csv_collection", "expenses.csv")
	s := NewCSVStore(path)

	require.NoError(t, s.Save(ctx, sampleLedger()))

	// A fresh store has no cache and must parse the file.
	fresh := NewCSVStore(path)
	loaded, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleLedger(), stripIDs(loaded))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "Date,Amount,Category,Receipt", lines[0])
	assert.Equal(t, "2024-01-15,50.00,Food,", lines[1])
	assert.Equal(t, `2023-12-31,0.01,"Gifts, misc",`, lines[3])
}

func TestCSVStore_LoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong header", "When,How much,What,Receipt\n2024-01-01,1,Food,\n"},
		{"bad date", "Date,Amount,Category,Receipt\n01/02/2024,1,Food,\n"},
		{"bad amount", "Date,Amount,Category,Receipt\n2024-01-01,abc,Food,\n"},
		{"short row", "Date,Amount,Category,Receipt\n2024-01-01,1\n"},
		{"bad quoting", "Date,Amount,Category,Receipt\n2024-01-01,1,\"Food,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "expenses.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			s := NewCSVStore(path)

			l, err := s.Load(ctx)
			assert.ErrorIs(t, err, core.ErrMalformedLedger)
			assert.NotNil(t, l)
			assert.Empty(t, l)

			// The corrupt file must survive a blocked append.
			_, err = s.Append(ctx, txn("2024-01-02", 100, "Food", ""))
			assert.ErrorIs(t, err, core.ErrMalformedLedger)
			data, _ := os.ReadFile(path)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestCSVStore_LoadEmptyAndHeaderOnly(t *testing.T) {
	for _, content := range []string{"", "Date,Amount,Category,Receipt\n", "\ufeffDate,Amount,Category,Receipt\n"} {
		path := filepath.Join(t.TempDir(), "expenses.csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		l, err := NewCSVStore(path).Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, l)
	}
}

func TestCSVStore_LoadUnreadable(t *testing.T) {
	// A directory in place of the file cannot be read as a ledger.
	path := t.TempDir()
	l, err := NewCSVStore(path).Load(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Empty(t, l)
}

func TestCSVStore_WriteFailure(t *testing.T) {
	// A regular file where the ledger directory should be.
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o644))
	s := NewCSVStore(filepath.Join(parent, "expenses.csv"))
	ctx := context.Background()

	err := s.Save(ctx, sampleLedger())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)

	_, err = s.Clear(ctx)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestCSVStore_AppendAssignsStableIDs(t *testing.T) {
	ctx := context.Background()
	s := NewCSVStore(filepath.Join(t.TempDir(), "expenses.csv"))

	for i, row := range sampleLedger() {
		l, err := s.Append(ctx, row)
		require.NoError(t, err)
		require.Len(t, l, i+1)
	}

	l, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(l))

	l, err = s.Remove(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(l))

	l, err = s.Append(ctx, txn("2024-02-02", 100, "Food", ""))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids(l), "ids are never reused")
}

func TestCSVStore_RemovePreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := NewCSVStore(filepath.Join(t.TempDir(), "expenses.csv"))
	require.NoError(t, s.Save(ctx, sampleLedger()))
	before, _ := s.Load(ctx)

	after, err := s.Remove(ctx, before[0].ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)-1)
	assert.Equal(t, before[1:], after)

	_, err = s.Remove(ctx, 999)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestCSVStore_Edit(t *testing.T) {
	ctx := context.Background()
	s := NewCSVStore(filepath.Join(t.TempDir(), "expenses.csv"))
	require.NoError(t, s.Save(ctx, sampleLedger()))
	before, _ := s.Load(ctx)

	id := before[1].ID
	require.NoError(t, s.Edit(ctx, id, core.NewDate(2024, 2, 3), core.Money{Cents: 999}, "Travel"))

	after, _ := s.Load(ctx)
	assert.Equal(t, id, after[1].ID)
	assert.Equal(t, "2024-02-03", after[1].Date.String())
	assert.Equal(t, int64(999), after[1].Amount.Cents)
	assert.Equal(t, "Travel", after[1].Category)
	assert.Equal(t, "aGVsbG8=", after[1].Receipt, "receipt survives edits")

	assert.ErrorIs(t, s.Edit(ctx, 999, core.NewDate(2024, 1, 1), core.Money{Cents: 1}, "x"), core.ErrIndexOutOfRange)
}

func TestCSVStore_Clear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	s := NewCSVStore(path)
	require.NoError(t, s.Save(ctx, sampleLedger()))

	l, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, l)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Amount,Category,Receipt\n", string(data))
}

func TestCSVStore_ReloadsExternalChanges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	s := NewCSVStore(path)
	require.NoError(t, s.Save(ctx, sampleLedger()))

	external := "Date,Amount,Category,Receipt\n2024-03-01,12.5,Housing,\n"
	require.NoError(t, os.WriteFile(path, []byte(external), 0o644))

	l, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Equal(t, "Housing", l[0].Category)
	assert.Equal(t, int64(1250), l[0].Amount.Cents)
	assert.Greater(t, l[0].ID, int64(3))
}

func TestCSVStore_SaveKeepsIDs(t *testing.T) {
	ctx := context.Background()
	s := NewCSVStore(filepath.Join(t.TempDir(), "expenses.csv"))

	restored := sampleLedger()
	restored[0].ID, restored[1].ID, restored[2].ID = 7, 9, 8
	require.NoError(t, s.Save(ctx, restored))

	l, _ := s.Load(ctx)
	assert.Equal(t, []int64{7, 9, 8}, ids(l))

	l, err := s.Append(ctx, txn("2024-01-01", 1, "Food", ""))
	require.NoError(t, err)
	assert.Equal(t, int64(10), l[3].ID)
}

func TestCSVStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewCSVStore(filepath.Join(t.TempDir(), "expenses.csv"))
	require.NoError(t, s.Save(ctx, sampleLedger()))

	l, _ := s.Load(ctx)
	l[0].Category = "Mutated"

	again, _ := s.Load(ctx)
	assert.Equal(t, "Food", again[0].Category)
}

func TestReadCSVLegacyAmounts(t *testing.T) {
	in := "Date,Amount,Category,Receipt\n2024-01-01,50.0,Food,\n2024-01-02,7,Other,\n"
	l, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.Equal(t, int64(5000), l[0].Amount.Cents)
	assert.Equal(t, int64(700), l[1].Amount.Cents)
}

func ids(l core.Ledger) []int64 {
	out := make([]int64, len(l))
	for i, t := range l {
		out[i] = t.ID
	}
	return out
}
