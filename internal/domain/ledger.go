package domain

import "github.com/shopspring/decimal"

// BalanceObserver receives every ledger mutation. Callbacks run synchronously
// on the goroutine performing the mutation and must not block.
type BalanceObserver interface {
	OnBalanceChanged(code Code, balance decimal.Decimal)
	OnCommissionChanged(code Code, commission decimal.Decimal)
}

// Ledger holds the three session balances and the commission accrued against
// each currency. It performs no currency conversion itself: both sides of a
// conversion arrive already computed and the ledger only records them.
//
// The ledger is not safe for concurrent use. It is owned by the conversion
// session, which serializes all access.
type Ledger struct {
	balances    map[Code]decimal.Decimal
	commissions map[Code]decimal.Decimal
	observer    BalanceObserver
}

// NewLedger creates a ledger seeded with the initial session balances
// (EUR 1000.00, USD 0, JPY 0) and zero commission accruals.
func NewLedger(observer BalanceObserver) *Ledger {
	return &Ledger{
		balances: map[Code]decimal.Decimal{
			EUR: initialEUR,
			USD: initialUSD,
			JPY: initialJPY,
		},
		commissions: map[Code]decimal.Decimal{
			EUR: decimal.Zero,
			USD: decimal.Zero,
			JPY: decimal.Zero,
		},
		observer: observer,
	}
}

// Balance returns the current balance for a currency
func (l *Ledger) Balance(code Code) decimal.Decimal {
	return l.balances[code]
}

// Commission returns the commission accrued against a currency
func (l *Ledger) Commission(code Code) decimal.Decimal {
	return l.commissions[code]
}

// Debit removes amount plus commission from a balance
func (l *Ledger) Debit(code Code, amount, commission decimal.Decimal) {
	l.setBalance(code, l.balances[code].Sub(amount).Sub(commission))
}

// Credit adds the settled amount to a balance
func (l *Ledger) Credit(code Code, settled decimal.Decimal) {
	l.setBalance(code, l.balances[code].Add(settled))
}

// AccrueCommission adds commission to a currency's accumulator
func (l *Ledger) AccrueCommission(code Code, commission decimal.Decimal) {
	l.commissions[code] = Quantize(l.commissions[code].Add(commission))
	if l.observer != nil {
		l.observer.OnCommissionChanged(code, l.commissions[code])
	}
}

func (l *Ledger) setBalance(code Code, value decimal.Decimal) {
	l.balances[code] = Quantize(value)
	if l.observer != nil {
		l.observer.OnBalanceChanged(code, l.balances[code])
	}
}

// PublishAll replays every current value through the observer. Used to seed
// the UI when the session starts or a new client attaches.
func (l *Ledger) PublishAll() {
	if l.observer == nil {
		return
	}
	for _, code := range Codes() {
		l.observer.OnBalanceChanged(code, l.balances[code])
		l.observer.OnCommissionChanged(code, l.commissions[code])
	}
}

// LedgerSnapshot is a point-in-time copy of all ledger values
type LedgerSnapshot struct {
	Balances    map[Code]decimal.Decimal `json:"balances"`
	Commissions map[Code]decimal.Decimal `json:"commissions"`
}

// Snapshot returns a copy of all balances and commission accruals
func (l *Ledger) Snapshot() LedgerSnapshot {
	snap := LedgerSnapshot{
		Balances:    make(map[Code]decimal.Decimal, len(l.balances)),
		Commissions: make(map[Code]decimal.Decimal, len(l.commissions)),
	}
	for k, v := range l.balances {
		snap.Balances[k] = v
	}
	for k, v := range l.commissions {
		snap.Commissions[k] = v
	}
	return snap
}
