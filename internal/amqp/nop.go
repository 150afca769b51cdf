package amqp

import (
	"context"
	"log/slog"
)

// NopPublisher drops every event. It stands in when no broker is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishEvent(ctx context.Context, ev *LedgerEvent) error {
	slog.DebugContext(ctx, "AMQP not configured, dropping ledger event", "type", ev.Type)
	return nil
}

func (NopPublisher) Close() error { return nil }
