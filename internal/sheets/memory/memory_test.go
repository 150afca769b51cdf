package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finboard/internal/core"
)

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	l, err := s.Append(ctx, core.Transaction{
		Date:     core.NewDate(2024, 1, 1),
		Amount:   core.Money{Cents: 123},
		Category: "Food",
	})
	if err != nil || len(l) != 1 || l[0].ID != 1 {
		t.Fatalf("unexpected append: ledger=%v err=%v", l, err)
	}

	l[0].Category = "Mutated"
	got, _ := s.Load(ctx)
	if got[0].Category != "Food" {
		t.Fatalf("store leaked internal slice: %v", got)
	}
}

func TestMemoryStoreRemoveEditClear(t *testing.T) {
	ctx := context.Background()
	s := New(core.Ledger{
		{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 1}, Category: "A"},
		{Date: core.NewDate(2024, 1, 2), Amount: core.Money{Cents: 2}, Category: "B"},
		{Date: core.NewDate(2024, 1, 3), Amount: core.Money{Cents: 3}, Category: "C"},
	})

	l, err := s.Remove(ctx, 2)
	if err != nil || len(l) != 2 || l[0].Category != "A" || l[1].Category != "C" {
		t.Fatalf("unexpected remove: ledger=%v err=%v", l, err)
	}
	if _, err := s.Remove(ctx, 2); !errors.Is(err, core.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}

	if err := s.Edit(ctx, 3, core.NewDate(2024, 1, 4), core.Money{Cents: 30}, "D"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.Edit(ctx, 42, core.NewDate(2024, 1, 4), core.Money{Cents: 30}, "D"); !errors.Is(err, core.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	l, _ = s.Load(ctx)
	if l[1].Category != "D" || l[1].Amount.Cents != 30 {
		t.Fatalf("unexpected edit result: %v", l[1])
	}

	l, err = s.Append(ctx, core.Transaction{Date: core.NewDate(2024, 1, 5), Amount: core.Money{Cents: 5}, Category: "E"})
	if err != nil || l[2].ID != 4 {
		t.Fatalf("expected id 4 after removal, got %v err=%v", l, err)
	}

	if l, _ := s.Clear(ctx); len(l) != 0 {
		t.Fatalf("clear returned %v", l)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	// No file -> empty store
	s := NewFromFiles(dir)
	if l, _ := s.Load(context.Background()); len(l) != 0 {
		t.Fatalf("expected empty store when seed missing, got %v", l)
	}

	seed := "Date,Amount,Category,Receipt\n2024-01-01,10.50,Food,\n2024-01-02,3,Transport,\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s = NewFromFiles(dir)
	l, _ := s.Load(context.Background())
	if len(l) != 2 || l[0].Amount.Cents != 1050 || l[1].ID != 2 {
		t.Fatalf("unexpected seeded ledger: %v", l)
	}

	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if l, _ := NewFromFiles(dir).Load(context.Background()); len(l) != 0 {
		t.Fatalf("expected empty store for malformed seed, got %v", l)
	}
}
