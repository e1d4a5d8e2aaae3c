package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
	"exchange_go/internal/strategy"
)

// Fetcher is the asynchronous settlement boundary. Implementations are called
// off the session's owning goroutine, at most once per validated attempt.
type Fetcher interface {
	FetchSettledAmount(ctx context.Context, amount decimal.Decimal, from, to domain.Code) (decimal.Decimal, error)
}

// Listener receives every externally visible effect of the session: balance
// and commission changes plus exactly one outcome per conversion attempt.
// Callbacks run synchronously while the session holds its lock and must not
// call back into the session.
type Listener interface {
	domain.BalanceObserver
	OnOutcome(outcome domain.Outcome)
}

// Session owns the conversion state for one UI session: the ledger, the
// operation counter and the in-flight guard. All mutable state is guarded by
// mu; at most one conversion may be awaiting settlement at a time.
//
// The conversion pipeline is validate -> commission -> fetch -> settle. The
// ledger mutates only on the settled transition, so a failed fetch leaves
// balances untouched.
type Session struct {
	policy   strategy.CommissionPolicy
	fetcher  Fetcher
	listener Listener
	metrics  *infra.Metrics

	mu         sync.Mutex
	ledger     *domain.Ledger
	operations int
	inFlight   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates a session with freshly seeded balances. Close must be
// called to release the in-flight fetch, if any.
func NewSession(policy strategy.CommissionPolicy, fetcher Fetcher, listener Listener, metrics *infra.Metrics) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		policy:   policy,
		fetcher:  fetcher,
		listener: listener,
		metrics:  metrics,
		ledger:   domain.NewLedger(listener),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start pushes the initial balances and commissions to the listener,
// mirroring the seed publication of the original screen.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.PublishAll()
}

// Convert runs one conversion attempt. Validation happens synchronously; on
// success the settlement fetch is started in the background and the outcome
// is later delivered to the listener. The returned error mirrors the outcome
// for rejected attempts so callers can answer immediately.
func (s *Session) Convert(req domain.Request) (uuid.UUID, error) {
	id := uuid.New()

	s.mu.Lock()

	if s.inFlight {
		s.mu.Unlock()
		s.reject(id, domain.ErrConversionInFlight)
		return id, domain.ErrConversionInFlight
	}

	if err := s.validateInput(req); err != nil {
		s.mu.Unlock()
		s.reject(id, err)
		return id, err
	}

	// The commission the attempt will owe, computed once with the sequence
	// number this attempt will carry and reused for the funds check.
	commission := s.policy.Calculate(req.Amount, s.operations+1)

	if req.Amount.Add(commission).GreaterThan(s.ledger.Balance(req.From)) {
		s.mu.Unlock()
		s.reject(id, domain.ErrInsufficientFunds)
		return id, domain.ErrInsufficientFunds
	}

	s.inFlight = true
	s.mu.Unlock()

	s.metrics.RecordAttempt()
	slog.Info("conversion attempt accepted",
		slog.String("attempt_id", id.String()),
		slog.String("amount", req.Amount.String()),
		slog.String("from", string(req.From)),
		slog.String("to", string(req.To)),
		slog.String("commission", commission.String()),
	)

	s.wg.Add(1)
	go s.settle(id, req, commission)

	return id, nil
}

// validateInput performs the ordered validation checks: amount first, then
// currency selection. The funds check runs separately in Convert because it
// needs the computed commission.
func (s *Session) validateInput(req domain.Request) error {
	if req.Amount.IsNegative() {
		return domain.ErrAmountMissing
	}
	if !req.From.Valid() || !req.To.Valid() || req.From == req.To {
		return domain.ErrCurrencySelection
	}
	return nil
}

// settle performs the fetch and the terminal state transition
func (s *Session) settle(id uuid.UUID, req domain.Request, commission decimal.Decimal) {
	defer s.wg.Done()

	begin := time.Now()
	settled, err := s.fetcher.FetchSettledAmount(s.ctx, req.Amount, req.From, req.To)
	took := time.Since(begin)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		s.metrics.RecordFetchFailure()
		slog.Warn("settlement fetch failed",
			slog.String("attempt_id", id.String()),
			slog.Any("error", err),
		)
		s.listener.OnOutcome(domain.FailedOutcome(id, err))
		return
	}

	// Settled transition: debit, accrual and credit are applied together so
	// no attempt can leave the ledger half-mutated.
	s.operations++
	s.ledger.Debit(req.From, req.Amount, commission)
	s.ledger.AccrueCommission(req.From, commission)
	s.ledger.Credit(req.To, settled)

	s.metrics.RecordSettled(took)
	slog.Info("conversion settled",
		slog.String("attempt_id", id.String()),
		slog.String("settled", settled.String()),
		slog.Int("operations", s.operations),
	)

	s.listener.OnOutcome(domain.SettledOutcome(id, domain.Summary{
		Amount:         req.Amount,
		From:           req.From,
		Settled:        settled,
		To:             req.To,
		Commission:     commission,
		CommissionCode: req.From,
	}))
}

// reject emits the outcome for an attempt that never reached the fetch
func (s *Session) reject(id uuid.UUID, err error) {
	s.metrics.RecordRejection()
	slog.Info("conversion attempt rejected",
		slog.String("attempt_id", id.String()),
		slog.Any("reason", domain.ReasonFor(err)),
	)
	s.listener.OnOutcome(domain.FailedOutcome(id, err))
}

// Snapshot returns a copy of the current ledger values
func (s *Session) Snapshot() domain.LedgerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// Operations returns the number of settled conversions so far
func (s *Session) Operations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operations
}

// Close cancels any in-flight fetch and waits for it to finish
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}
