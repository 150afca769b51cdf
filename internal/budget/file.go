package budget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"finboard/internal/core"
)

// ErrMalformedFile is returned when the side file cannot be decoded.
var ErrMalformedFile = errors.New("malformed budget file")

// LoadFile reads a budget side file written by SaveFile. A missing file
// yields the default policy and no error. A malformed file yields the
// default policy and ErrMalformedFile so the caller can report it.
// Categories in the file that are not defaults are appended in file order.
func LoadFile(path string) (*Policy, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read budget file %s: %w", path, err)
	}

	if err := decodeLimits(p, data); err != nil {
		return Default(), fmt.Errorf("%w: %s: %v", ErrMalformedFile, path, err)
	}
	return p, nil
}

// decodeLimits walks the top-level object token by token. Defaults keep
// their display position, new categories follow in the order they appear.
func decodeLimits(p *Policy, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		cat, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected category name, got %v", tok)
		}
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("limit for %s: %w", cat, err)
		}
		if err := applyNumber(p, cat, n); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func applyNumber(p *Policy, category string, n json.Number) error {
	m, err := core.ParseMoney(n.String())
	if err != nil {
		return fmt.Errorf("limit for %s: %w", category, err)
	}
	return p.SetLimit(category, m)
}

// SaveFile writes the policy as a JSON object of category to limit.
// The file is replaced atomically through a temp file in the same directory.
func SaveFile(path string, p *Policy) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, cat := range p.order {
		key, err := json.Marshal(cat)
		if err != nil {
			return fmt.Errorf("encode category %q: %w", cat, err)
		}
		sep := ","
		if i == len(p.order)-1 {
			sep = ""
		}
		fmt.Fprintf(&buf, "  %s: %s%s\n", key, p.limits[cat].String(), sep)
	}
	buf.WriteString("}\n")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create budget dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".budget-*.json")
	if err != nil {
		return fmt.Errorf("create temp budget file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write budget file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close budget file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace budget file: %w", err)
	}
	return nil
}
