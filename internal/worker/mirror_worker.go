package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/sheets"
)

// MirrorWorker copies the ledger into a read-only replica whenever a ledger
// event arrives. Events only say that something changed; the worker always
// mirrors the full table.
type MirrorWorker struct {
	source sheets.LedgerReader
	mirror sheets.LedgerMirror
}

func NewMirrorWorker(source sheets.LedgerReader, mirror sheets.LedgerMirror) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		mirror: mirror,
	}
}

// HandleEvent mirrors the current ledger. Returning an error makes the
// consumer requeue the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", ev.ID,
		"type", ev.Type,
		"transaction_id", ev.TransactionID,
		"timestamp", ev.Timestamp)

	if err := w.MirrorNow(ctx); err != nil {
		return fmt.Errorf("handle %s: %w", ev.Type, err)
	}
	return nil
}

// MirrorNow reads the ledger and pushes it to the replica. A malformed
// ledger is not mirrored, so the replica keeps the last good copy.
func (w *MirrorWorker) MirrorNow(ctx context.Context) error {
	l, err := w.source.Load(ctx)
	if err != nil {
		if errors.Is(err, core.ErrMalformedLedger) {
			slog.WarnContext(ctx, "Ledger is malformed, mirror skipped", "error", err)
			return nil
		}
		return fmt.Errorf("load ledger: %w", err)
	}

	if err := w.mirror.Mirror(ctx, l); err != nil {
		slog.ErrorContext(ctx, "Failed to mirror ledger",
			"rows", len(l),
			"error", err)
		return fmt.Errorf("mirror ledger: %w", err)
	}

	slog.InfoContext(ctx, "Ledger mirrored", "rows", len(l))
	return nil
}

// StartupMirror runs one mirror at worker startup to catch up on events
// missed while the worker was down.
func (w *MirrorWorker) StartupMirror(ctx context.Context) error {
	if err := w.MirrorNow(ctx); err != nil {
		return fmt.Errorf("startup mirror: %w", err)
	}
	return nil
}
