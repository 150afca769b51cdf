package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finboard/internal/core"
	"finboard/internal/sheets"
	"finboard/internal/storage"
)

var _ sheets.LedgerStore = (*Store)(nil)

// SeedFile is the optional CSV read by NewFromFiles.
const SeedFile = "seed_transactions.csv"

type Store struct {
	mu     sync.Mutex
	items  core.Ledger
	nextID int64
}

func New(seed core.Ledger) *Store {
	s := &Store{nextID: 1}
	s.items = s.assign(seed.Clone())
	return s
}

// NewFromFiles seeds the store from base/seed_transactions.csv when present.
// A missing or unreadable seed yields an empty store.
func NewFromFiles(base string) *Store {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		return New(nil)
	}
	defer f.Close()
	seed, err := storage.ReadCSV(f)
	if err != nil {
		return New(nil)
	}
	return New(seed)
}

func (s *Store) assign(l core.Ledger) core.Ledger {
	if id := l.MaxID(); id >= s.nextID {
		s.nextID = id + 1
	}
	for i := range l {
		if l[i].ID == 0 {
			l[i].ID = s.nextID
			s.nextID++
		}
	}
	return l
}

func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone(), nil
}

func (s *Store) Save(_ context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.assign(l.Clone())
	return nil
}

// Append stores the transaction under a fresh ID.
func (s *Store) Append(_ context.Context, t core.Transaction) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	s.items = append(s.items, t)
	return s.items.Clone(), nil
}

func (s *Store) Remove(_ context.Context, id int64) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.items.RemoveAt(s.items.IndexOf(id))
	if !ok {
		return s.items.Clone(), fmt.Errorf("%w: transaction %d", core.ErrIndexOutOfRange, id)
	}
	s.items = next
	return s.items.Clone(), nil
}

func (s *Store) Clear(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = core.Ledger{}
	return core.Ledger{}, nil
}

func (s *Store) Edit(_ context.Context, id int64, date core.Date, amount core.Money, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.items.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: transaction %d", core.ErrIndexOutOfRange, id)
	}
	s.items[i].Date = date
	s.items[i].Amount = amount
	s.items[i].Category = category
	return nil
}
