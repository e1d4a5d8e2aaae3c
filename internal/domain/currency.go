package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies one of the session currencies
type Code string

const (
	EUR Code = "EUR"
	USD Code = "USD"
	JPY Code = "JPY"
)

// Scale is the number of fractional digits every monetary value carries.
// Rounding is always banker's (half to even).
const Scale = 2

// Codes returns the session currencies in display order
func Codes() []Code {
	return []Code{EUR, USD, JPY}
}

// Valid reports whether the code is one of the session currencies
func (c Code) Valid() bool {
	switch c {
	case EUR, USD, JPY:
		return true
	}
	return false
}

// AmountNotProvided is the sentinel meaning "no amount entered".
// It survives from the original input contract: the amount field arrives as
// free text and anything unparseable collapses to this value.
var AmountNotProvided = decimal.NewFromInt(-1)

// ParseAmount parses a free-text amount into a scale-2 value.
// Empty or non-numeric input returns AmountNotProvided.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return AmountNotProvided
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return AmountNotProvided
	}
	return Quantize(d)
}

// Quantize rounds a value to the monetary scale using banker's rounding
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// Initial balances for a fresh session
var (
	initialEUR = decimal.New(100000, -2) // 1000.00
	initialUSD = decimal.Zero
	initialJPY = decimal.Zero
)
