// Package history keeps the bounded log of ledgers snapshotted by
// "clear all", newest first.
package history

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"finboard/internal/core"
)

// MaxEntries is the number of snapshots retained.
const MaxEntries = 5

const labelLayout = "2006-01-02 15:04"

// Entry is one snapshotted ledger. Only Name may change after creation.
type Entry struct {
	ClearedAt    time.Time
	Name         string
	Transactions core.Ledger
}

// Label returns the user-given name, or one derived from the clear time.
func (e Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return "History from " + e.ClearedAt.Format(labelLayout)
}

func (e Entry) clone() Entry {
	e.Transactions = e.Transactions.Clone()
	return e
}

// Log is a bounded, newest-first list of entries. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLimit overrides MaxEntries. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.limit = n
		}
	}
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{limit: MaxEntries, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Snapshot deep-copies ledger into a new entry at index 0 and evicts the
// oldest entries beyond the limit.
func (l *Log) Snapshot(ledger core.Ledger, label string) Entry {
	e := Entry{
		ClearedAt:    l.now(),
		Name:         strings.TrimSpace(label),
		Transactions: ledger.Clone(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	return e.clone()
}

// Rename sets the label of entry index. An empty label restores the
// derived one.
func (l *Log) Rename(index int, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(index); err != nil {
		return err
	}
	l.entries[index].Name = strings.TrimSpace(label)
	return nil
}

// Restore returns a deep copy of the ledger stored at index. The entry stays
// in the log.
func (l *Log) Restore(index int) (core.Ledger, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.check(index); err != nil {
		return nil, err
	}
	return l.entries[index].Transactions.Clone(), nil
}

// Get returns a copy of entry index for viewing.
func (l *Log) Get(index int) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.check(index); err != nil {
		return Entry{}, err
	}
	return l.entries[index].clone(), nil
}

// Entries returns copies of every entry, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) check(index int) error {
	if index < 0 || index >= len(l.entries) {
		return fmt.Errorf("%w: history index %d, log has %d entries", core.ErrIndexOutOfRange, index, len(l.entries))
	}
	return nil
}
