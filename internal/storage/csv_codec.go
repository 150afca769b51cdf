package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"finboard/internal/core"
)

// Header is the canonical column layout of the ledger file.
var Header = []string{"Date", "Amount", "Category", "Receipt"}

// WriteCSV encodes the ledger in the canonical layout. IDs are not written.
func WriteCSV(w io.Writer, l core.Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range l {
		rec := []string{t.Date.String(), t.Amount.String(), t.Category, t.Receipt}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a canonical ledger file. Rows get zero IDs. An empty input
// is an empty ledger; any structural or field error is reported with its line.
func ReadCSV(r io.Reader) (core.Ledger, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Ledger{}, err
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return core.Ledger{}, nil
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		return core.Ledger{}, fmt.Errorf("header: %w", err)
	}
	for i, h := range head {
		if strings.TrimSpace(h) != Header[i] {
			return core.Ledger{}, fmt.Errorf("unexpected header %v, want %v", head, Header)
		}
	}

	out := core.Ledger{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Ledger{}, err
		}
		line, _ := cr.FieldPos(0)
		t, err := parseRecord(rec)
		if err != nil {
			return core.Ledger{}, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseRecord(rec []string) (core.Transaction, error) {
	date, err := core.ParseDate(rec[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseMoney(rec[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", rec[1], err)
	}
	return core.Transaction{
		Date:     date,
		Amount:   amount,
		Category: strings.TrimSpace(rec[2]),
		Receipt:  strings.TrimSpace(rec[3]),
	}, nil
}
