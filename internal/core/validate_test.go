package core

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	today := NewDate(2024, 2, 15)

	tests := []struct {
		name     string
		date     string
		amount   string
		category string
		wantErr  error
		wantCat  string
	}{
		{name: "valid", date: "2024-02-15", amount: "12.50", category: "Food", wantCat: "Food"},
		{name: "past date", date: "2023-12-31", amount: "1", category: "Travel", wantCat: "Travel"},
		{name: "unknown category accepted", date: "2024-02-01", amount: "3", category: "Pets", wantCat: "Pets"},
		{name: "empty category defaults", date: "2024-02-01", amount: "3", category: "  ", wantCat: DefaultCategory},
		{name: "zero amount", date: "2024-02-01", amount: "0", category: "Food", wantErr: ErrInvalidAmount},
		{name: "negative amount", date: "2024-02-01", amount: "-5", category: "Food", wantErr: ErrInvalidAmount},
		{name: "garbage amount", date: "2024-02-01", amount: "ten", category: "Food", wantErr: ErrInvalidAmount},
		{name: "future date", date: "2024-02-16", amount: "5", category: "Food", wantErr: ErrFutureDate},
		{name: "future year compares as date", date: "2025-01-01", amount: "5", category: "Food", wantErr: ErrFutureDate},
		{name: "malformed date", date: "02/01/2024", amount: "5", category: "Food", wantErr: ErrMalformedDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.date, tt.amount, tt.category, today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !IsValidationError(err) {
					t.Fatalf("expected a validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Category != tt.wantCat {
				t.Fatalf("category = %q, want %q", got.Category, tt.wantCat)
			}
			if got.Amount.Cents <= 0 {
				t.Fatalf("expected positive amount")
			}
		})
	}
}
