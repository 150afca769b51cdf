package google

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"finboard/internal/core"
)

var mirrorHeader = []any{"Date", "Amount", "Category", "Has Receipt"}

// mirrorRows converts the ledger to the sheet layout, header first.
func mirrorRows(l core.Ledger) [][]any {
	rows := make([][]any, 0, len(l)+1)
	rows = append(rows, mirrorHeader)
	for _, t := range l {
		receipt := "no"
		if t.HasReceipt() {
			receipt = "yes"
		}
		rows = append(rows, []any{t.Date.String(), t.Amount.Float64(), t.Category, receipt})
	}
	return rows
}

func rowsDigest(rows [][]any) string {
	h := sha256.New()
	for _, row := range rows {
		for _, v := range row {
			fmt.Fprintf(h, "%v\x1f", v)
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseMirrorRows converts a values matrix (as returned by Sheets API) back
// into transactions. The header row and blank rows are skipped.
func parseMirrorRows(values [][]any) (core.Ledger, error) {
	out := core.Ledger{}
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && strings.EqualFold(safeGet(row, 0), "Date") {
			continue
		}
		if strings.Join(row, "") == "" {
			continue
		}
		date, err := core.ParseDate(safeGet(row, 0))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.ParseMoney(strings.ReplaceAll(safeGet(row, 1), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("row %d: amount %q: %w", i+1, safeGet(row, 1), err)
		}
		out = append(out, core.Transaction{
			Date:     date,
			Amount:   amount,
			Category: safeGet(row, 2),
		})
	}
	return out, nil
}
