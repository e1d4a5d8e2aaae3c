package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
	"exchange_go/internal/strategy"
)

// fakeFetcher resolves settlements from a function, no network involved
type fakeFetcher struct {
	fetch func(ctx context.Context, amount decimal.Decimal, from, to domain.Code) (decimal.Decimal, error)
}

func (f *fakeFetcher) FetchSettledAmount(ctx context.Context, amount decimal.Decimal, from, to domain.Code) (decimal.Decimal, error) {
	return f.fetch(ctx, amount, from, to)
}

// echoFetcher settles every conversion at the given rate
func echoFetcher(rate decimal.Decimal) *fakeFetcher {
	return &fakeFetcher{
		fetch: func(_ context.Context, amount decimal.Decimal, _, _ domain.Code) (decimal.Decimal, error) {
			return amount.Mul(rate), nil
		},
	}
}

// captureListener records balance changes and delivers outcomes on a channel
type captureListener struct {
	mu          sync.Mutex
	balances    map[domain.Code]decimal.Decimal
	commissions map[domain.Code]decimal.Decimal
	outcomes    chan domain.Outcome
}

func newCaptureListener() *captureListener {
	return &captureListener{
		balances:    make(map[domain.Code]decimal.Decimal),
		commissions: make(map[domain.Code]decimal.Decimal),
		outcomes:    make(chan domain.Outcome, 16),
	}
}

func (l *captureListener) OnBalanceChanged(code domain.Code, balance decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[code] = balance
}

func (l *captureListener) OnCommissionChanged(code domain.Code, commission decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commissions[code] = commission
}

func (l *captureListener) OnOutcome(outcome domain.Outcome) {
	l.outcomes <- outcome
}

func (l *captureListener) waitOutcome(t *testing.T) domain.Outcome {
	t.Helper()
	select {
	case o := <-l.outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outcome")
		return domain.Outcome{}
	}
}

func newTestSession(fetcher Fetcher, listener Listener) *Session {
	return NewSession(strategy.NewDefaultPolicy(), fetcher, listener, &infra.Metrics{})
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// settleN runs n conversions and waits for each to settle
func settleN(t *testing.T, s *Session, listener *captureListener, n int, req domain.Request) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := s.Convert(req); err != nil {
			t.Fatalf("baseline conversion %d rejected: %v", i+1, err)
		}
		o := listener.waitOutcome(t)
		if o.Summary == nil {
			t.Fatalf("baseline conversion %d did not settle: %+v", i+1, o.Error)
		}
	}
}

func TestSession_SixthOperationChargesCommission(t *testing.T) {
	listener := newCaptureListener()
	fetcher := echoFetcher(mustDec(t, "1.08"))
	s := newTestSession(fetcher, listener)
	defer s.Close()

	// five free zero-amount conversions as baseline
	settleN(t, s, listener, 5, domain.Request{Amount: decimal.Zero, From: domain.EUR, To: domain.USD})

	// the 6th operation exceeds the free threshold: commission 0.70
	if _, err := s.Convert(domain.Request{Amount: mustDec(t, "100.00"), From: domain.EUR, To: domain.USD}); err != nil {
		t.Fatalf("conversion rejected: %v", err)
	}
	o := listener.waitOutcome(t)
	if o.Summary == nil {
		t.Fatalf("expected settled outcome, got %+v", o.Error)
	}

	if !o.Summary.Commission.Equal(mustDec(t, "0.70")) {
		t.Errorf("commission = %s, want 0.70", o.Summary.Commission)
	}
	if !o.Summary.Settled.Equal(mustDec(t, "108.00")) {
		t.Errorf("settled = %s, want 108.00", o.Summary.Settled)
	}

	snap := s.Snapshot()
	if !snap.Balances[domain.EUR].Equal(mustDec(t, "899.30")) {
		t.Errorf("EUR = %s, want 899.30", snap.Balances[domain.EUR])
	}
	if !snap.Balances[domain.USD].Equal(mustDec(t, "108.00")) {
		t.Errorf("USD = %s, want 108.00", snap.Balances[domain.USD])
	}
	if !snap.Commissions[domain.EUR].Equal(mustDec(t, "0.70")) {
		t.Errorf("EUR commission = %s, want 0.70", snap.Commissions[domain.EUR])
	}
	if s.Operations() != 6 {
		t.Errorf("operations = %d, want 6", s.Operations())
	}
}

func TestSession_InsufficientFunds(t *testing.T) {
	listener := newCaptureListener()
	s := newTestSession(echoFetcher(decimal.NewFromInt(1)), listener)
	defer s.Close()

	settleN(t, s, listener, 5, domain.Request{Amount: decimal.Zero, From: domain.EUR, To: domain.USD})
	before := s.Snapshot()

	// 1000.00 + 7.00 commission > 1000.00 balance
	_, err := s.Convert(domain.Request{Amount: mustDec(t, "1000.00"), From: domain.EUR, To: domain.USD})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	o := listener.waitOutcome(t)
	if o.Error == nil || o.Error.Reason != domain.ReasonInsufficientFunds {
		t.Errorf("expected INSUFFICIENT_FUNDS outcome, got %+v", o)
	}

	after := s.Snapshot()
	if !after.Balances[domain.EUR].Equal(before.Balances[domain.EUR]) {
		t.Error("rejected attempt must not mutate the ledger")
	}
	if s.Operations() != 5 {
		t.Errorf("rejected attempt must not consume an operation, got %d", s.Operations())
	}
}

func TestSession_ValidationOrder(t *testing.T) {
	t.Run("missing amount wins over currency selection", func(t *testing.T) {
		listener := newCaptureListener()
		s := newTestSession(echoFetcher(decimal.NewFromInt(1)), listener)
		defer s.Close()

		_, err := s.Convert(domain.Request{Amount: domain.AmountNotProvided, From: domain.EUR, To: domain.EUR})
		if !errors.Is(err, domain.ErrAmountMissing) {
			t.Fatalf("expected ErrAmountMissing, got %v", err)
		}
		o := listener.waitOutcome(t)
		if o.Error == nil || o.Error.Reason != domain.ReasonMissingAmount {
			t.Errorf("expected MISSING_AMOUNT outcome, got %+v", o)
		}
	})

	t.Run("same currency", func(t *testing.T) {
		listener := newCaptureListener()
		s := newTestSession(echoFetcher(decimal.NewFromInt(1)), listener)
		defer s.Close()

		_, err := s.Convert(domain.Request{Amount: mustDec(t, "10.00"), From: domain.EUR, To: domain.EUR})
		if !errors.Is(err, domain.ErrCurrencySelection) {
			t.Fatalf("expected ErrCurrencySelection, got %v", err)
		}

		snap := s.Snapshot()
		if !snap.Balances[domain.EUR].Equal(decimal.NewFromInt(1000)) {
			t.Error("validation failure must not mutate the ledger")
		}
	})

	t.Run("unset currency", func(t *testing.T) {
		listener := newCaptureListener()
		s := newTestSession(echoFetcher(decimal.NewFromInt(1)), listener)
		defer s.Close()

		_, err := s.Convert(domain.Request{Amount: mustDec(t, "10.00"), From: domain.EUR})
		if !errors.Is(err, domain.ErrCurrencySelection) {
			t.Fatalf("expected ErrCurrencySelection, got %v", err)
		}
	})
}

func TestSession_FetchFailureLeavesLedgerUntouched(t *testing.T) {
	listener := newCaptureListener()
	fetcher := &fakeFetcher{
		fetch: func(context.Context, decimal.Decimal, domain.Code, domain.Code) (decimal.Decimal, error) {
			return decimal.Zero, domain.NewFetchError("get", errors.New("connection refused"))
		},
	}
	s := newTestSession(fetcher, listener)
	defer s.Close()

	before := s.Snapshot()

	if _, err := s.Convert(domain.Request{Amount: mustDec(t, "100.00"), From: domain.EUR, To: domain.USD}); err != nil {
		t.Fatalf("conversion rejected: %v", err)
	}

	o := listener.waitOutcome(t)
	if o.Error == nil || o.Error.Reason != domain.ReasonNetwork {
		t.Fatalf("expected NETWORK outcome, got %+v", o)
	}

	after := s.Snapshot()
	if !after.Balances[domain.EUR].Equal(before.Balances[domain.EUR]) {
		t.Error("failed fetch must leave the debit unapplied")
	}
	if s.Operations() != 0 {
		t.Errorf("failed attempt must not consume an operation, got %d", s.Operations())
	}

	// the session is usable again after the failure
	settleN(t, s, listener, 1, domain.Request{Amount: decimal.Zero, From: domain.EUR, To: domain.USD})
}

func TestSession_RejectsConcurrentAttempts(t *testing.T) {
	listener := newCaptureListener()
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		fetch: func(ctx context.Context, amount decimal.Decimal, _, _ domain.Code) (decimal.Decimal, error) {
			select {
			case <-release:
				return amount, nil
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			}
		},
	}
	s := newTestSession(fetcher, listener)
	defer s.Close()

	if _, err := s.Convert(domain.Request{Amount: mustDec(t, "10.00"), From: domain.EUR, To: domain.USD}); err != nil {
		t.Fatalf("first conversion rejected: %v", err)
	}

	_, err := s.Convert(domain.Request{Amount: mustDec(t, "10.00"), From: domain.EUR, To: domain.JPY})
	if !errors.Is(err, domain.ErrConversionInFlight) {
		t.Fatalf("expected ErrConversionInFlight, got %v", err)
	}
	o := listener.waitOutcome(t)
	if o.Error == nil || o.Error.Reason != domain.ReasonBusy {
		t.Errorf("expected BUSY outcome, got %+v", o)
	}

	close(release)
	o = listener.waitOutcome(t)
	if o.Summary == nil {
		t.Errorf("first conversion should settle after release, got %+v", o.Error)
	}
}

func TestSession_CloseCancelsInFlightFetch(t *testing.T) {
	listener := newCaptureListener()
	fetcher := &fakeFetcher{
		fetch: func(ctx context.Context, _ decimal.Decimal, _, _ domain.Code) (decimal.Decimal, error) {
			<-ctx.Done()
			return decimal.Zero, ctx.Err()
		},
	}
	s := newTestSession(fetcher, listener)

	if _, err := s.Convert(domain.Request{Amount: mustDec(t, "10.00"), From: domain.EUR, To: domain.USD}); err != nil {
		t.Fatalf("conversion rejected: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the in-flight fetch")
	}

	o := listener.waitOutcome(t)
	if o.Error == nil {
		t.Errorf("cancelled attempt should fail, got %+v", o)
	}
}

func TestSession_StartPublishesSeedValues(t *testing.T) {
	listener := newCaptureListener()
	s := newTestSession(echoFetcher(decimal.NewFromInt(1)), listener)
	defer s.Close()

	s.Start()

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if !listener.balances[domain.EUR].Equal(decimal.NewFromInt(1000)) {
		t.Errorf("seed EUR = %s, want 1000.00", listener.balances[domain.EUR])
	}
	if !listener.balances[domain.USD].IsZero() || !listener.balances[domain.JPY].IsZero() {
		t.Error("seed USD and JPY should be zero")
	}
}
