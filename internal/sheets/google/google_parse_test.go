package google

import (
	"testing"

	"finboard/internal/core"
)

func TestMirrorRows(t *testing.T) {
	l := core.Ledger{
		{ID: 1, Date: core.NewDate(2024, 1, 15), Amount: core.Money{Cents: 5000}, Category: "Food"},
		{ID: 2, Date: core.NewDate(2024, 2, 1), Amount: core.Money{Cents: 3050}, Category: "Transport", Receipt: "aGk="},
	}

	rows := mirrorRows(l)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "Has Receipt" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "2024-01-15" || rows[1][1] != 50.0 || rows[1][3] != "no" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][1] != 30.5 || rows[2][3] != "yes" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}

func TestParseMirrorRows(t *testing.T) {
	values := [][]any{
		{"Date", "Amount", "Category", "Has Receipt"},
		{"2024-01-15", 50, "Food", "no"},
		{},
		{"2024-02-01", "30,5", "Transport", "yes"},
		{"", "", ""},
	}

	l, err := parseMirrorRows(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(l) != 2 {
		t.Fatalf("expected 2 transactions, got %d: %v", len(l), l)
	}
	if l[0].Amount.Cents != 5000 || l[1].Amount.Cents != 3050 || l[1].Category != "Transport" {
		t.Errorf("unexpected ledger: %v", l)
	}

	if _, err := parseMirrorRows([][]any{{"15/01/2024", 1, "Food"}}); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestRowsDigest(t *testing.T) {
	a := mirrorRows(core.Ledger{{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}, Category: "Food"}})
	b := mirrorRows(core.Ledger{{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}, Category: "Food"}})
	c := mirrorRows(core.Ledger{{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 101}, Category: "Food"}})

	if rowsDigest(a) != rowsDigest(b) {
		t.Error("equal rows should have equal digests")
	}
	if rowsDigest(a) == rowsDigest(c) {
		t.Error("different rows should have different digests")
	}
}
