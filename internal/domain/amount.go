package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value as the backend reported it. The server sends
// decimals either as JSON strings ("100.00") or numbers; the original text is
// kept so per-voucher amounts can be shown exactly as received.
type Amount struct {
	value decimal.Decimal
	text  string
}

// NewAmount wraps a decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// ParseAmount parses a user-entered decimal.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{value: d, text: s}, nil
}

// Decimal returns the numeric value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.value.IsPositive() }

// String returns the raw server text when known.
func (a Amount) String() string {
	if a.text != "" {
		return a.text
	}
	return a.value.String()
}

// Fixed2 renders the value with exactly two decimals.
func (a Amount) Fixed2() string { return a.value.StringFixed(2) }

// UnmarshalJSON accepts quoted decimals, bare numbers and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	text := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("amount %s: %w", b, err)
	}
	*a = Amount{value: d, text: text}
	return nil
}

// MarshalJSON emits the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}
