package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finboard/internal/adapters"
	"finboard/internal/amqp"
	"finboard/internal/config"
	"finboard/internal/core"
	"finboard/internal/sheets"
	"finboard/internal/sheets/memory"
	"finboard/internal/storage"
)

type nopMirror struct{ calls int }

func (m *nopMirror) Mirror(context.Context, core.Ledger) error {
	m.calls++
	return nil
}

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		bt   BackendType
		want bool
	}{
		{CSVBackend, true},
		{SQLiteBackend, true},
		{MemoryBackend, true},
		{"sheets", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.want {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.want)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := &config.Config{DataBackend: "postgres"}
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = &config.Config{
		DataBackend:  "csv",
		LedgerFile:   "ledger.csv",
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "x",
		AMQPQueue:    "q",
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if bc.Type != CSVBackend || bc.LedgerFile != "ledger.csv" || bc.AMQPQueue != "q" {
		t.Errorf("unexpected backend config %+v", bc)
	}
	if !bc.Shared() {
		t.Error("csv backend should be shared")
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	factory := NewFactory(nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, s sheets.LedgerStore)
	}{
		{
			name:   "csv",
			config: Config{Type: CSVBackend, LedgerFile: filepath.Join(dir, "expenses.csv")},
			check: func(t *testing.T, s sheets.LedgerStore) {
				if _, ok := s.(*storage.CSVStore); !ok {
					t.Errorf("got %T, want *storage.CSVStore", s)
				}
			},
		},
		{
			name:   "sqlite",
			config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "finboard.db")},
			check: func(t *testing.T, s sheets.LedgerStore) {
				if _, ok := s.(*storage.SQLiteRepository); !ok {
					t.Errorf("got %T, want *storage.SQLiteRepository", s)
				}
			},
		},
		{
			name:   "memory",
			config: Config{Type: MemoryBackend, DataDirectory: dir},
			check: func(t *testing.T, s sheets.LedgerStore) {
				if _, ok := s.(*memory.Store); !ok {
					t.Errorf("got %T, want *memory.Store", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Close()

			tt.check(t, res.Store)
			if _, ok := res.Publisher.(amqp.NopPublisher); !ok {
				t.Errorf("publisher = %T, want NopPublisher without AMQP_URL", res.Publisher)
			}
			l, err := res.Store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(l) != 0 {
				t.Errorf("new store has %d rows", len(l))
			}
		})
	}
}

func TestCreateBackend_InvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: CSVBackend})
	if err == nil {
		t.Error("expected error for csv backend without a ledger file")
	}
}

func TestCreateBackend_InlineMirror(t *testing.T) {
	mirror := &nopMirror{}
	factory := NewFactory(nil).WithMirrorFactory(func(context.Context, string, string) (sheets.LedgerMirror, error) {
		return mirror, nil
	})

	res, err := factory.CreateBackend(context.Background(), Config{
		Type:                MemoryBackend,
		DataDirectory:       t.TempDir(),
		GoogleSpreadsheetID: "sheet-123",
		GoogleSheetName:     "Ledger",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Store.(*adapters.MirroringStore); !ok {
		t.Fatalf("store = %T, want *adapters.MirroringStore", res.Store)
	}

	if _, err := res.Store.Append(context.Background(), core.Transaction{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 1}, Category: "Food"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if mirror.calls != 1 {
		t.Errorf("mirror calls = %d, want 1", mirror.calls)
	}
}

func TestCreateBackend_MirrorFailureIsNotFatal(t *testing.T) {
	factory := NewFactory(nil).WithMirrorFactory(func(context.Context, string, string) (sheets.LedgerMirror, error) {
		return nil, errors.New("no credentials")
	})

	res, err := factory.CreateBackend(context.Background(), Config{
		Type:                MemoryBackend,
		DataDirectory:       t.TempDir(),
		GoogleSpreadsheetID: "sheet-123",
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Store.(*memory.Store); !ok {
		t.Errorf("store = %T, want plain *memory.Store", res.Store)
	}
}
