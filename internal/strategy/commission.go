package strategy

import (
	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
)

// Default commission tier
const (
	FreeOperations = 5
)

// DefaultRatePercent is the commission rate charged past the free operations
var DefaultRatePercent = decimal.New(7, -1) // 0.7

// PercentOverFreeOps charges a percentage of the converted amount once the
// operation sequence number exceeds the free-operations threshold and the
// tier predicate holds. Deterministic and stateless.
type PercentOverFreeOps struct {
	freeOperations int
	rate           decimal.Decimal // fraction, e.g. 0.007
	applies        TierPredicate
}

// NewPercentOverFreeOps creates a policy with the default always-charge
// predicate. ratePercent is given in percent (0.7 means 0.7%).
func NewPercentOverFreeOps(freeOperations int, ratePercent decimal.Decimal) *PercentOverFreeOps {
	return &PercentOverFreeOps{
		freeOperations: freeOperations,
		rate:           ratePercent.Div(decimal.NewFromInt(100)),
		applies:        AlwaysCharge,
	}
}

// NewDefaultPolicy creates the stock 0.7%-over-5-free-operations policy
func NewDefaultPolicy() *PercentOverFreeOps {
	return NewPercentOverFreeOps(FreeOperations, DefaultRatePercent)
}

// WithPredicate swaps the tier predicate and returns the policy
func (p *PercentOverFreeOps) WithPredicate(applies TierPredicate) *PercentOverFreeOps {
	p.applies = applies
	return p
}

// Calculate returns the commission owed for an attempt, rounded to the
// monetary scale. Free operations and exempted tiers owe an exact zero.
func (p *PercentOverFreeOps) Calculate(amount decimal.Decimal, operation int) decimal.Decimal {
	if operation > p.freeOperations && p.applies(amount, operation) {
		return domain.Quantize(amount.Mul(p.rate))
	}
	return decimal.Zero
}
