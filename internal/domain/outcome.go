package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is one attempted conversion. It lives only for the duration of the
// attempt and is never stored.
type Request struct {
	Amount decimal.Decimal `json:"amount"`
	From   Code            `json:"from"`
	To     Code            `json:"to"`
}

// Summary describes a settled conversion: what left the source balance, what
// arrived on the destination balance and what commission was charged.
type Summary struct {
	Amount         decimal.Decimal `json:"amount"`
	From           Code            `json:"from"`
	Settled        decimal.Decimal `json:"settled"`
	To             Code            `json:"to"`
	Commission     decimal.Decimal `json:"commission"`
	CommissionCode Code            `json:"commission_code"`
}

// ErrorSignal describes a failed attempt
type ErrorSignal struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Outcome is the single result of one conversion attempt. Exactly one of
// Summary or Error is set.
type Outcome struct {
	AttemptID uuid.UUID    `json:"attempt_id"`
	Summary   *Summary     `json:"summary,omitempty"`
	Error     *ErrorSignal `json:"error,omitempty"`
}

// SettledOutcome builds the outcome for a settled attempt
func SettledOutcome(id uuid.UUID, s Summary) Outcome {
	return Outcome{AttemptID: id, Summary: &s}
}

// FailedOutcome builds the outcome for a failed attempt
func FailedOutcome(id uuid.UUID, err error) Outcome {
	return Outcome{
		AttemptID: id,
		Error: &ErrorSignal{
			Reason:  ReasonFor(err),
			Message: err.Error(),
		},
	}
}
