package domain

import "errors"

// Reason classifies a failed conversion attempt for user-facing messaging
type Reason string

const (
	ReasonMissingAmount     Reason = "MISSING_AMOUNT"
	ReasonCurrencySelection Reason = "CURRENCY_SELECTION"
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"
	ReasonBusy              Reason = "BUSY"
	ReasonNetwork           Reason = "NETWORK"
)

var (
	// ErrAmountMissing is returned when no amount was entered (sentinel) or
	// the amount is negative.
	ErrAmountMissing = errors.New("please enter an amount")

	// ErrCurrencySelection is returned when either currency is unset or both
	// sides are the same currency.
	ErrCurrencySelection = errors.New("please choose two different currencies")

	// ErrInsufficientFunds is returned when amount plus commission exceeds the
	// source balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConversionInFlight is returned when an attempt is started while
	// another is awaiting settlement.
	ErrConversionInFlight = errors.New("a conversion is already in progress")

	// ErrEmptyResponse is returned when the settlement API answers with an
	// empty body.
	ErrEmptyResponse = errors.New("empty settlement response")
)

// FetchError wraps a transport or decoding failure from the settlement API
type FetchError struct {
	Op  string // operation that failed (e.g. "get", "decode")
	Err error
}

func (e *FetchError) Error() string {
	return "settlement " + e.Op + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a FetchError for the given operation
func NewFetchError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}

// ReasonFor maps an error to the outcome taxonomy. Anything outside the
// validation errors collapses to the generic network reason, matching the
// single generic message the user sees for any settlement failure.
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrAmountMissing):
		return ReasonMissingAmount
	case errors.Is(err, ErrCurrencySelection):
		return ReasonCurrencySelection
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrConversionInFlight):
		return ReasonBusy
	default:
		return ReasonNetwork
	}
}
