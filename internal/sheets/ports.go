package sheets

import (
	"context"

	"finboard/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerReader reads the whole transaction table. A missing table is an
	// empty ledger.
	LedgerReader interface {
		Load(ctx context.Context) (core.Ledger, error)
	}

	// LedgerStore persists the transaction table. Implementations return a
	// usable ledger even when they also return an error.
	LedgerStore interface {
		LedgerReader
		// Save replaces the whole table.
		Save(ctx context.Context, l core.Ledger) error
		// Append adds t with a fresh ID and returns the updated ledger.
		Append(ctx context.Context, t core.Transaction) (core.Ledger, error)
		// Remove deletes the row with the given ID.
		Remove(ctx context.Context, id int64) (core.Ledger, error)
		// Clear replaces the table with an empty one.
		Clear(ctx context.Context) (core.Ledger, error)
		// Edit changes the fields of the row with the given ID in place.
		Edit(ctx context.Context, id int64, date core.Date, amount core.Money, category string) error
	}

	// LedgerMirror receives full copies of the ledger for read-only replicas.
	LedgerMirror interface {
		Mirror(ctx context.Context, l core.Ledger) error
	}
)
