package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/amqp"
	"finboard/internal/core"
)

type fakeSource struct {
	ledger core.Ledger
	err    error
}

func (s fakeSource) Load(context.Context) (core.Ledger, error) {
	return s.ledger, s.err
}

type fakeMirror struct {
	got   []core.Ledger
	err   error
	calls int
}

func (m *fakeMirror) Mirror(_ context.Context, l core.Ledger) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, l)
	return nil
}

func ledger(n int) core.Ledger {
	out := core.Ledger{}
	for i := 0; i < n; i++ {
		out = append(out, core.Transaction{
			ID:       int64(i + 1),
			Date:     core.NewDate(2024, 2, i+1),
			Amount:   core.Money{Cents: int64(100 * (i + 1))},
			Category: "Food",
		})
	}
	return out
}

func TestHandleEvent_MirrorsFullLedger(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(fakeSource{ledger: ledger(3)}, mirror)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.TransactionDeleted, 2, 3))
	require.NoError(t, err)
	require.Len(t, mirror.got, 1)
	assert.Len(t, mirror.got[0], 3)
}

func TestHandleEvent_Errors(t *testing.T) {
	tests := []struct {
		name      string
		source    fakeSource
		mirrorErr error
		wantErr   bool
		calls     int
	}{
		{
			name:    "store unavailable is retried",
			source:  fakeSource{err: fmt.Errorf("%w: disk", core.ErrStoreUnavailable)},
			wantErr: true,
			calls:   0,
		},
		{
			name:   "malformed ledger is skipped",
			source: fakeSource{ledger: core.Ledger{}, err: fmt.Errorf("%w: bad header", core.ErrMalformedLedger)},
			calls:  0,
		},
		{
			name:      "mirror failure is retried",
			source:    fakeSource{ledger: ledger(1)},
			mirrorErr: errors.New("quota exceeded"),
			wantErr:   true,
			calls:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mirror := &fakeMirror{err: tt.mirrorErr}
			w := NewMirrorWorker(tt.source, mirror)

			err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.LedgerCleared, 0, 1))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.calls, mirror.calls)
		})
	}
}

func TestStartupMirror(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewMirrorWorker(fakeSource{ledger: ledger(0)}, mirror)

	require.NoError(t, w.StartupMirror(context.Background()))
	require.Len(t, mirror.got, 1)
	assert.Empty(t, mirror.got[0])
}
