package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"finboard/internal/budget"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

// templateFuncs are the helpers available to every page.
func templateFuncs(symbol string) template.FuncMap {
	return template.FuncMap{
		"money":   func(m core.Money) string { return m.Format(symbol) },
		"pct":     func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"width":   barWidth,
		"receipt": receiptSrc,
		"symbol":  func() string { return symbol },
	}
}

// barWidth turns a percentage into a progress bar width, keeping small
// non-zero values visible.
func barWidth(pct float64) int {
	w := int(pct + 0.5)
	if pct > 0 && w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	if w < 0 {
		w = 0
	}
	return w
}

// receiptSrc builds an inline data URL for a stored receipt. Receipts that
// are not valid base64 images yield an empty URL.
func receiptSrc(encoded string) template.URL {
	if encoded == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}
	ct := http.DetectContentType(raw)
	if !strings.HasPrefix(ct, "image/") {
		return ""
	}
	return template.URL("data:" + ct + ";base64," + encoded)
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsValidationError(err), errors.Is(err, budget.ErrEmptyCategory):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadForm):
		return http.StatusBadRequest
	case errors.Is(err, ErrReceiptTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrMalformedLedger), errors.Is(err, services.ErrNoBudgetFile):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown in the inline error and the notification.
func userMessage(err error, status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "Invalid input: " + err.Error()
	case http.StatusBadRequest:
		return "Malformed request."
	case http.StatusRequestEntityTooLarge:
		return "The receipt is too large."
	case http.StatusNotFound:
		return "Not found: " + err.Error()
	case http.StatusServiceUnavailable:
		return "The ledger is temporarily unavailable. Please try again."
	case http.StatusConflict:
		if errors.Is(err, services.ErrNoBudgetFile) {
			return "No budget file is configured."
		}
		return "The ledger file is malformed. Fix the file or restore a history entry first."
	default:
		return "Something went wrong. Please try again."
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return applog.ErrorTypeValidation
	case http.StatusNotFound:
		return applog.ErrorTypeNotFound
	case http.StatusServiceUnavailable:
		return applog.ErrorTypeStorage
	case http.StatusConflict:
		return applog.ErrorTypeMalformed
	default:
		return applog.ErrorTypeInternal
	}
}

// writeError answers a failed operation. Input errors are logged at warn,
// everything else at error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := userMessage(err, status)

	fields := applog.NewFields().
		WithOperation(op).
		WithError(err).
		WithErrorType(errorType(status)).
		ToSlice()
	if status < http.StatusInternalServerError {
		s.logger.WarnContext(r.Context(), "Request rejected", fields...)
	} else {
		s.logger.ErrorContext(r.Context(), "Request failed", fields...)
	}

	b := ErrorResponse(status, msg).TriggerErrorNotification(msg)
	if status == http.StatusServiceUnavailable {
		b.RetryAfter(5 * time.Second)
	}
	b.Write(w)
}

// loadWarning is the banner text for a page rendered from a failed read.
func loadWarning(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrMalformedLedger):
		return "The ledger file could not be read and is shown as empty. Changes are blocked until it is fixed."
	case errors.Is(err, core.ErrStoreUnavailable):
		return "The ledger is temporarily unavailable; figures may be incomplete."
	default:
		return "The ledger could not be loaded."
	}
}
