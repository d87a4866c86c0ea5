// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer minor units (cents). Parsing and formatting go
// through shopspring/decimal so user input never touches float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents caps a single amount well below int64 overflow once summed.
const maxCents = int64(1_000_000_000_000)

type Money struct {
	Cents int64
}

// ParseAmount converts user text to a strictly positive Money value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two places. Signs, exponents and anything that is not a plain
// decimal number are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235
//	ParseAmount("-5")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsPositive() || cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String renders the amount with two decimals, e.g. "1500.00" or "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
