package core

import (
	"fmt"
	"strings"
)

// ValidatedInput is a transaction ready for insertion.
type ValidatedInput struct {
	Date     Date
	Amount   Money
	Category string
}

// Validate checks raw transaction input against the insertion policy:
// the amount must be a well-formed positive decimal and the date must be a
// calendar date no later than today. Categories are not checked against the
// budget policy; an empty category falls back to DefaultCategory.
func Validate(date, amount, category string, today Date) (ValidatedInput, error) {
	cents, err := ParseDecimalToCents(amount)
	if err != nil {
		return ValidatedInput{}, fmt.Errorf("%w: %q", ErrInvalidAmount, strings.TrimSpace(amount))
	}
	d, err := ParseDate(date)
	if err != nil {
		return ValidatedInput{}, err
	}
	if d.After(today) {
		return ValidatedInput{}, fmt.Errorf("%w: %s is after %s", ErrFutureDate, d, today)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	return ValidatedInput{
		Date:     d,
		Amount:   Money{Cents: cents},
		Category: category,
	}, nil
}

// Transaction converts the validated input into a row without an id.
func (v ValidatedInput) Transaction(receipt string) Transaction {
	return Transaction{
		Date:     v.Date,
		Amount:   v.Amount,
		Category: v.Category,
		Receipt:  receipt,
	}
}
