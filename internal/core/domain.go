package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk and form representation of a transaction date.
const DateLayout = "2006-01-02"

// DefaultCategory is used when a transaction is submitted without a category.
const DefaultCategory = "Other"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one ledger row. ID is a synthetic sequence number
	// assigned by the store at insertion; it is not the display position.
	Transaction struct {
		ID       int64
		Date     Date
		Amount   Money
		Category string
		Receipt  string // base64 image blob, empty when absent
	}

	// Ledger is the ordered transaction table. Order is append order and
	// is not guaranteed to be chronological.
	Ledger []Transaction
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the calendar date of now in now's location.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string as a calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// YearMonth returns the YYYY-MM bucket the date falls in.
func (d Date) YearMonth() string {
	return fmt.Sprintf("%04d-%02d", d.Year(), d.Month())
}

// SameMonth reports whether both dates are in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// HasReceipt reports whether a receipt blob is attached.
func (t Transaction) HasReceipt() bool {
	return t.Receipt != ""
}

// Len returns the number of rows.
func (l Ledger) Len() int {
	return len(l)
}

// Clone returns an independent copy of the ledger.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return Ledger{}
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// Total sums every amount in the ledger.
func (l Ledger) Total() Money {
	var total Money
	for _, t := range l {
		total = total.Add(t.Amount)
	}
	return total
}

// IndexOf returns the position of the transaction with the given id, or -1.
func (l Ledger) IndexOf(id int64) int {
	for i, t := range l {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// RemoveAt returns a copy of the ledger without row i. The relative order
// of the remaining rows is preserved. ok is false when i is out of range.
func (l Ledger) RemoveAt(i int) (Ledger, bool) {
	if i < 0 || i >= len(l) {
		return l.Clone(), false
	}
	out := make(Ledger, 0, len(l)-1)
	out = append(out, l[:i]...)
	out = append(out, l[i+1:]...)
	return out, true
}

// MaxID returns the highest id in the ledger, 0 when empty.
func (l Ledger) MaxID() int64 {
	var id int64
	for _, t := range l {
		if t.ID > id {
			id = t.ID
		}
	}
	return id
}

// Categories returns the distinct categories in first-seen order.
func (l Ledger) Categories() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range l {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	return out
}
