// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// transaction forms with receipt uploads, list filters, row ids and history
// indexes.

package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finboard/internal/core"
	"finboard/internal/metrics"
	"finboard/internal/services"
)

var (
	// ErrReceiptTooLarge is returned when an uploaded receipt exceeds the limit.
	ErrReceiptTooLarge = errors.New("receipt too large")
	// ErrBadForm is returned when a request body cannot be decoded.
	ErrBadForm = errors.New("malformed request body")
)

// formOverhead is the multipart allowance on top of the receipt limit.
const formOverhead = 1 << 20

// ParseTransactionForm reads date, amount and category from a urlencoded
// or multipart form. An optional "receipt" file is base64-encoded.
func ParseTransactionForm(w http.ResponseWriter, r *http.Request, maxReceipt int64) (services.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceipt+formOverhead)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxReceipt + formOverhead)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return services.Input{}, fmt.Errorf("%w: request exceeds %d bytes", ErrReceiptTooLarge, mbe.Limit)
		}
		return services.Input{}, fmt.Errorf("%w: %v", ErrBadForm, err)
	}

	in := services.Input{
		Date:     sanitizeInput(r.FormValue("date")),
		Amount:   sanitizeInput(r.FormValue("amount")),
		Category: sanitizeInput(r.FormValue("category")),
	}

	receipt, err := readReceipt(r, maxReceipt)
	if err != nil {
		return services.Input{}, err
	}
	in.Receipt = receipt
	return in, nil
}

func readReceipt(r *http.Request, maxReceipt int64) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	f, hdr, err := r.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: receipt: %v", ErrBadForm, err)
	}
	defer f.Close()

	if hdr.Size > maxReceipt {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrReceiptTooLarge, hdr.Size, maxReceipt)
	}
	raw, err := io.ReadAll(io.LimitReader(f, maxReceipt+1))
	if err != nil {
		return "", fmt.Errorf("read receipt: %w", err)
	}
	if int64(len(raw)) > maxReceipt {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrReceiptTooLarge, maxReceipt)
	}
	if len(raw) == 0 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ParseFilter reads the transaction list filter from query parameters:
// from and to as YYYY-MM-DD, category repeated or comma separated.
// Malformed dates are dropped and reported as problems.
func ParseFilter(query url.Values) (metrics.Filter, []string) {
	var f metrics.Filter
	var problems []string

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.From = d
		} else {
			problems = append(problems, fmt.Sprintf("ignored start date %q", v))
		}
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			f.To = d
		} else {
			problems = append(problems, fmt.Sprintf("ignored end date %q", v))
		}
	}
	for _, raw := range query["category"] {
		for _, c := range strings.Split(raw, ",") {
			if c = sanitizeInput(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}
	return f, problems
}

// ParseIndex parses a history index. Anything that is not a non-negative
// integer is out of range.
func ParseIndex(v string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: history index %q", core.ErrIndexOutOfRange, v)
	}
	return i, nil
}

// ParseID parses a transaction id.
func ParseID(v string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: transaction %q", core.ErrIndexOutOfRange, v)
	}
	return id, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// formValue reads key from a DELETE/POST body of any supported encoding,
// falling back to the query string.
func formValue(r *http.Request, key string) (string, error) {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" && r.ContentLength <= 0 {
		return sanitizeInput(v), nil
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadForm, err)
	}
	if v := p.Get(key); v != "" {
		return v, nil
	}
	return sanitizeInput(r.URL.Query().Get(key)), nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}
