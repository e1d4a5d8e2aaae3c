package strategy

import "github.com/shopspring/decimal"

// TierPredicate decides whether the commission tier applies to an attempt.
// amount is the amount being converted, operation is the 1-based sequence
// number of the attempt within the session.
type TierPredicate func(amount decimal.Decimal, operation int) bool

// CommissionPolicy computes the commission owed for a conversion attempt.
// It is called synchronously by the session before any balance is touched.
// Implementations must be pure: same inputs, same output, no side effects.
type CommissionPolicy interface {
	Calculate(amount decimal.Decimal, operation int) decimal.Decimal
}

// AlwaysCharge is the default tier predicate: no extra exemptions
func AlwaysCharge(decimal.Decimal, int) bool {
	return true
}

// FreeUnder exempts conversions below the given amount from commission
func FreeUnder(limit decimal.Decimal) TierPredicate {
	return func(amount decimal.Decimal, _ int) bool {
		return amount.GreaterThanOrEqual(limit)
	}
}

// EveryNthFree exempts every n-th operation from commission
func EveryNthFree(n int) TierPredicate {
	return func(_ decimal.Decimal, operation int) bool {
		return n <= 0 || operation%n != 0
	}
}
