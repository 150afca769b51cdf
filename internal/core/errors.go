package core

import "errors"

// Error taxonomy shared by validation, stores and the ledger service.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrFutureDate       = errors.New("date cannot be in the future")
	ErrMalformedDate    = errors.New("malformed date")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrMalformedLedger  = errors.New("malformed ledger file")
)

// IsValidationError reports whether err is a user input error that blocks
// only the mutation it was raised for.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrFutureDate) ||
		errors.Is(err, ErrMalformedDate)
}
