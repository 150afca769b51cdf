package adapters

import (
	"context"
	"log/slog"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

var _ sheets.LedgerStore = (*MirroringStore)(nil)

// MirroringStore wraps a LedgerStore and pushes the ledger to a mirror after
// every successful mutation. It is used when a spreadsheet mirror is
// configured without a broker, so the replica is updated inline instead of
// by the mirror worker. Mirror failures are logged; the store result stands.
type MirroringStore struct {
	store  sheets.LedgerStore
	mirror sheets.LedgerMirror
}

func NewMirroringStore(store sheets.LedgerStore, mirror sheets.LedgerMirror) *MirroringStore {
	return &MirroringStore{
		store:  store,
		mirror: mirror,
	}
}

func (m *MirroringStore) Load(ctx context.Context) (core.Ledger, error) {
	return m.store.Load(ctx)
}

func (m *MirroringStore) Save(ctx context.Context, l core.Ledger) error {
	if err := m.store.Save(ctx, l); err != nil {
		return err
	}
	m.reload(ctx)
	return nil
}

func (m *MirroringStore) Append(ctx context.Context, t core.Transaction) (core.Ledger, error) {
	l, err := m.store.Append(ctx, t)
	if err != nil {
		return l, err
	}
	m.push(ctx, l)
	return l, nil
}

func (m *MirroringStore) Remove(ctx context.Context, id int64) (core.Ledger, error) {
	l, err := m.store.Remove(ctx, id)
	if err != nil {
		return l, err
	}
	m.push(ctx, l)
	return l, nil
}

func (m *MirroringStore) Clear(ctx context.Context) (core.Ledger, error) {
	l, err := m.store.Clear(ctx)
	if err != nil {
		return l, err
	}
	m.push(ctx, l)
	return l, nil
}

func (m *MirroringStore) Edit(ctx context.Context, id int64, date core.Date, amount core.Money, category string) error {
	if err := m.store.Edit(ctx, id, date, amount, category); err != nil {
		return err
	}
	m.reload(ctx)
	return nil
}

func (m *MirroringStore) reload(ctx context.Context) {
	l, err := m.store.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Reload after write failed, mirror skipped", "error", err)
		return
	}
	m.push(ctx, l)
}

func (m *MirroringStore) push(ctx context.Context, l core.Ledger) {
	if err := m.mirror.Mirror(ctx, l); err != nil {
		slog.ErrorContext(ctx, "Inline mirror failed", "rows", len(l), "error", err)
	}
}
