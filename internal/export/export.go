// Package export renders the ledger as downloadable files. Exports are
// one-way; nothing here reads them back.
package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/storage"
)

// Format names an export file type.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
)

// Formats lists every format in menu order.
func Formats() []Format {
	return []Format{JSON, CSV, PDF, XLSX}
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case CSV:
		return "text/csv; charset=utf-8"
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Filename returns the download name of the format.
func (f Format) Filename() string {
	switch f {
	case JSON:
		return "expense_backup.json"
	case CSV:
		return "transactions.csv"
	case PDF:
		return "expense_report.pdf"
	case XLSX:
		return "transactions.xlsx"
	}
	return "export.bin"
}

// Options controls rendering details.
type Options struct {
	Now    time.Time
	Symbol string
}

// Render produces the file for ledger in format f.
func Render(f Format, ledger core.Ledger, opts Options) ([]byte, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Symbol == "" {
		opts.Symbol = "$"
	}

	switch f {
	case JSON:
		return Backup(ledger, opts.Now)
	case CSV:
		var buf bytes.Buffer
		if err := storage.WriteCSV(&buf, ledger); err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		return buf.Bytes(), nil
	case PDF:
		return Report(ledger, opts.Symbol)
	case XLSX:
		return Workbook(ledger)
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// Cache keeps rendered exports keyed by ledger content, so repeated
// downloads of an unchanged ledger do not re-render. Keying on content
// rather than an in-process counter picks up writes made by other
// processes to the same store.
type Cache struct {
	lru *cache.LRUCache[[]byte]
}

// NewCache creates an export cache holding up to size files for ttl.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{lru: cache.NewLRUCache[[]byte](size, ttl)}
}

// LRU exposes the underlying cache for cleanup registration and stats.
func (c *Cache) LRU() *cache.LRUCache[[]byte] { return c.lru }

// Render returns the cached file for (f, ledger, symbol) or renders it.
func (c *Cache) Render(f Format, ledger core.Ledger, symbol string) ([]byte, error) {
	key := fmt.Sprintf("%s/%s/%s", f, symbol, fingerprint(ledger))
	return c.lru.GetOrLoad(key, func() ([]byte, error) {
		return Render(f, ledger, Options{Symbol: symbol})
	})
}

// fingerprint digests every field of every row, in order.
func fingerprint(ledger core.Ledger) string {
	h := sha256.New()
	for _, t := range ledger {
		fmt.Fprintf(h, "%d\x1f%s\x1f%d\x1f%s\x1f%s\x1e", t.ID, t.Date, t.Amount.Cents, t.Category, t.Receipt)
	}
	return hex.EncodeToString(h.Sum(nil))
}
