package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

var _ sheets.LedgerStore = (*CSVStore)(nil)

type fingerprint struct {
	modTime time.Time
	size    int64
}

// CSVStore keeps the ledger in a single comma-separated file. Parsed rows
// and their IDs are cached until the file changes on disk.
type CSVStore struct {
	path string

	mu     sync.Mutex
	cached core.Ledger
	fp     fingerprint
	valid  bool
	nextID int64
}

// NewCSVStore creates a store backed by path. The file is created lazily on
// the first write.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path, nextID: 1}
}

// Path returns the backing file.
func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Load(ctx context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.load(ctx)
	return l.Clone(), err
}

func (s *CSVStore) load(ctx context.Context) (core.Ledger, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.cached, s.valid = core.Ledger{}, true
		s.fp = fingerprint{}
		return s.cached, nil
	}
	if err != nil {
		s.valid = false
		return core.Ledger{}, fmt.Errorf("%w: stat %s: %v", core.ErrStoreUnavailable, s.path, err)
	}

	fp := fingerprint{modTime: info.ModTime(), size: info.Size()}
	if s.valid && fp == s.fp {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.valid = false
		return core.Ledger{}, fmt.Errorf("%w: read %s: %v", core.ErrStoreUnavailable, s.path, err)
	}

	l, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		s.valid = false
		slog.WarnContext(ctx, "Ledger file is malformed", "path", s.path, "error", err)
		return core.Ledger{}, fmt.Errorf("%w: %s: %v", core.ErrMalformedLedger, s.path, err)
	}
	for i := range l {
		l[i].ID = s.nextID
		s.nextID++
	}
	if s.cached != nil && s.valid {
		slog.InfoContext(ctx, "Ledger file changed on disk, reloaded", "path", s.path, "rows", len(l))
	}
	s.cached, s.fp, s.valid = l, fp, true
	return s.cached, nil
}

func (s *CSVStore) Save(ctx context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, l)
}

func (s *CSVStore) save(ctx context.Context, l core.Ledger) error {
	l = l.Clone()
	if maxID := l.MaxID(); maxID >= s.nextID {
		s.nextID = maxID + 1
	}
	for i := range l {
		if l[i].ID == 0 {
			l[i].ID = s.nextID
			s.nextID++
		}
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, l); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		s.valid = false
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		s.valid = false
		return fmt.Errorf("%w: stat %s: %v", core.ErrStoreUnavailable, s.path, err)
	}
	s.cached = l
	s.fp = fingerprint{modTime: info.ModTime(), size: info.Size()}
	s.valid = true

	slog.DebugContext(ctx, "Ledger saved", "path", s.path, "rows", len(l))
	return nil
}

func (s *CSVStore) Append(ctx context.Context, t core.Transaction) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return l.Clone(), fmt.Errorf("append blocked: %w", err)
	}
	t.ID = 0
	next := append(l.Clone(), t)
	if err := s.save(ctx, next); err != nil {
		return l.Clone(), err
	}
	return s.cached.Clone(), nil
}

func (s *CSVStore) Remove(ctx context.Context, id int64) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return l.Clone(), fmt.Errorf("remove blocked: %w", err)
	}
	next, ok := l.RemoveAt(l.IndexOf(id))
	if !ok {
		return l.Clone(), fmt.Errorf("%w: transaction %d", core.ErrIndexOutOfRange, id)
	}
	if err := s.save(ctx, next); err != nil {
		return l.Clone(), err
	}
	return s.cached.Clone(), nil
}

func (s *CSVStore) Clear(ctx context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, core.Ledger{}); err != nil {
		return core.Ledger{}, err
	}
	return core.Ledger{}, nil
}

func (s *CSVStore) Edit(ctx context.Context, id int64, date core.Date, amount core.Money, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("edit blocked: %w", err)
	}
	i := l.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: transaction %d", core.ErrIndexOutOfRange, id)
	}
	next := l.Clone()
	next[i].Date = date
	next[i].Amount = amount
	next[i].Category = category
	return s.save(ctx, next)
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
