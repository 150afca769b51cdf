package export

import (
	"encoding/json"
	"fmt"
	"time"

	"finboard/internal/core"
)

type backupFile struct {
	ExportedAt   time.Time   `json:"exported_at"`
	Count        int         `json:"count"`
	Transactions []backupRow `json:"transactions"`
}

type backupRow struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Receipt     string `json:"receipt,omitempty"`
}

// Backup renders the full ledger, receipts included, as indented JSON.
func Backup(ledger core.Ledger, now time.Time) ([]byte, error) {
	data := backupFile{
		ExportedAt:   now.UTC(),
		Count:        len(ledger),
		Transactions: make([]backupRow, 0, len(ledger)),
	}
	for _, t := range ledger {
		data.Transactions = append(data.Transactions, backupRow{
			ID:          t.ID,
			Date:        t.Date.String(),
			Amount:      t.Amount.String(),
			AmountCents: t.Amount.Cents,
			Category:    t.Category,
			Receipt:     t.Receipt,
		})
	}

	raw, err := json.MarshalIndent(&data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	return raw, nil
}
