// Package teller implements the conversion quoting and transaction
// submission flow behind the teller-window UI.
package teller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andinafx/cambio/pkg/cache"
	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/exchange"
	"github.com/andinafx/cambio/pkg/gateway"
	"github.com/andinafx/cambio/pkg/scheduler"
	"github.com/andinafx/cambio/pkg/session"
)

// Gateway is the slice of the platform client the teller flow needs.
type Gateway interface {
	ActiveRates(ctx context.Context, houseID int64) ([]domain.ExchangeRate, error)
	Currencies(ctx context.Context) ([]domain.Currency, error)
	SubmitConversion(ctx context.Context, req gateway.SubmitConversionRequest) (gateway.Transaction, error)
}

// TTLs carries the per-domain cache lifetimes: volatile rate data expires in
// minutes, the near-static currency list in hours.
type TTLs struct {
	Rates      time.Duration
	Currencies time.Duration
}

// SubmitRequest is one transaction submission from the UI.
type SubmitRequest struct {
	Selection domain.OperationSelection
	Note      string
}

// Service drives quoting, rate lookup, and submission. It never trusts the
// UI's gating: every conversion action re-checks the session itself.
type Service struct {
	sessions   *session.Manager
	gw         Gateway
	rates      *cache.Store[[]domain.ExchangeRate]
	currencies *cache.Store[[]domain.Currency]
	ttl        TTLs
	lookup     func(ctx context.Context, houseID int64) ([]domain.ExchangeRate, error)
	logger     *slog.Logger

	mu         sync.Mutex
	working    domain.OperationSelection
	refreshers map[int64]*scheduler.AsyncDebouncer[[]domain.ExchangeRate]
}

// New builds the teller service and registers its working-state cleanup with
// the session manager.
func New(
	sessions *session.Manager,
	gw Gateway,
	rates *cache.Store[[]domain.ExchangeRate],
	currencies *cache.Store[[]domain.Currency],
	ttl TTLs,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		sessions:   sessions,
		gw:         gw,
		rates:      rates,
		currencies: currencies,
		ttl:        ttl,
		logger:     logger.With(slog.String("component", "teller")),
		refreshers: make(map[int64]*scheduler.AsyncDebouncer[[]domain.ExchangeRate]),
	}
	s.lookup = cache.WithCache(rates, gw.ActiveRates, ratesKey,
		cache.SetOptions{TTL: ttl.Rates, Persistent: true})
	sessions.OnClose(s.clearWorking)
	return s
}

func ratesKey(houseID int64) string {
	return fmt.Sprintf("rates:house:%d", houseID)
}

const currenciesKey = "currencies"

// Quote recomputes the conversion for sel. Gated on an open window like
// every other conversion action.
func (s *Service) Quote(sel domain.OperationSelection) (domain.ConversionResult, error) {
	if !s.sessions.Allowed() {
		return domain.ConversionResult{}, domain.ErrWindowNotOpen
	}
	s.setWorking(sel)
	return exchange.Calculate(sel), nil
}

// Submit validates the calculation and session state, then records the
// transaction through the platform. On success the working selection is
// cleared; on failure nothing changes.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (gateway.Transaction, error) {
	// Re-check instead of trusting the UI's disabled buttons; stale UI
	// state must not slip a submission through.
	if !s.sessions.Allowed() {
		return gateway.Transaction{}, domain.ErrWindowNotOpen
	}

	result := exchange.Calculate(req.Selection)
	if !result.Valid {
		return gateway.Transaction{}, fmt.Errorf("%w: %s", domain.ErrInvalidConversion, result.Reason)
	}

	view := s.sessions.Current()
	amount, err := decimal.NewFromString(req.Selection.SourceAmount)
	if err != nil {
		// Calculate already accepted the amount; this is unreachable in
		// practice but kept as a guard.
		return gateway.Transaction{}, fmt.Errorf("%w: %s", domain.ErrInvalidConversion, exchange.ReasonInvalidAmount)
	}

	tx, err := s.gw.SubmitConversion(ctx, gateway.SubmitConversionRequest{
		RequestID:    uuid.NewString(),
		WindowID:     view.WindowID,
		RateID:       req.Selection.Rate.ID,
		Kind:         req.Selection.Kind,
		SourceAmount: amount,
		AppliedRate:  result.AppliedRate,
		Note:         req.Note,
	})
	if err != nil {
		s.logger.Error("transaction submission failed",
			"window_id", view.WindowID, "rate_id", req.Selection.Rate.ID, "error", err)
		return gateway.Transaction{}, err
	}

	s.clearWorking()
	s.logger.Info("transaction recorded",
		"transaction_id", tx.ID, "window_id", view.WindowID, "kind", string(req.Selection.Kind))
	return tx, nil
}

// ActiveRates returns the published rates for a house, memoized with the
// volatile-rates TTL and mirrored into the durable cache tier.
func (s *Service) ActiveRates(ctx context.Context, houseID int64) ([]domain.ExchangeRate, error) {
	return s.lookup(ctx, houseID)
}

// Currencies returns the supported currency list, memoized with the
// near-static reference-data TTL.
func (s *Service) Currencies(ctx context.Context) ([]domain.Currency, error) {
	if list, ok := s.currencies.Get(ctx, currenciesKey); ok {
		return list, nil
	}
	list, err := s.gw.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	s.currencies.Set(ctx, currenciesKey, list,
		cache.SetOptions{TTL: s.ttl.Currencies, Persistent: true})
	return list, nil
}

// RefreshRates drops cached rates for the house and refetches. A refresh for
// the same house arriving while another is in flight supersedes it and the
// stale result is discarded; refreshes for different houses are independent.
func (s *Service) RefreshRates(ctx context.Context, houseID int64) ([]domain.ExchangeRate, error) {
	s.rates.InvalidatePattern(ctx, ratesKey(houseID))

	rates, err := s.refresherFor(houseID).Do(ctx)
	if err != nil {
		return nil, err
	}
	s.rates.Set(ctx, ratesKey(houseID), rates,
		cache.SetOptions{TTL: s.ttl.Rates, Persistent: true})
	return rates, nil
}

// refresherFor returns the house's refresh debouncer, creating it on first
// use. Each debouncer closes over its own house ID, so supersession is
// scoped per house and a fetched result can only ever be stored under the
// house it was fetched for.
func (s *Service) refresherFor(houseID int64) *scheduler.AsyncDebouncer[[]domain.ExchangeRate] {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refreshers[houseID]
	if !ok {
		r = scheduler.NewAsyncDebouncer(func(ctx context.Context) ([]domain.ExchangeRate, error) {
			return s.gw.ActiveRates(ctx, houseID)
		})
		s.refreshers[houseID] = r
	}
	return r
}

// Selection returns the current working selection.
func (s *Service) Selection() domain.OperationSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working
}

func (s *Service) setWorking(sel domain.OperationSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = sel
}

func (s *Service) clearWorking() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = domain.OperationSelection{}
}
