// Package balance keeps the user's credit balance up to date.
//
// Refresher loads the balance with a single delayed retry on server
// failures and publishes it to an Observer. Responses are published in
// request order: a slow response to an older request never replaces the
// value of a newer one.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/metrics"
)

// DefaultRetryDelay is the wait before the single retry of a failed load.
const DefaultRetryDelay = 3 * time.Second

// API is the part of the service client the refresher needs.
type API interface {
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	TopUp(ctx context.Context, amount decimal.Decimal) (*domain.TopUpResult, error)
}

// Observer receives published balances.
type Observer interface {
	OnBalance(domain.Balance)
	OnBalanceError(error)
}

// Refresher loads and tops up the balance.
type Refresher struct {
	api        API
	observer   Observer
	clock      clockwork.Clock
	retryDelay time.Duration

	mu        sync.Mutex
	seq       uint64
	published uint64
	current   *domain.Balance
}

// Option customizes a Refresher.
type Option func(*Refresher)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(r *Refresher) { r.clock = c }
}

// WithRetryDelay overrides DefaultRetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// NewRefresher creates a Refresher. observer may be nil.
func NewRefresher(api API, observer Observer, opts ...Option) *Refresher {
	r := &Refresher{
		api:        api,
		observer:   observer,
		clock:      clockwork.NewRealClock(),
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the last published balance.
func (r *Refresher) Current() (domain.Balance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return domain.Balance{}, false
	}
	return *r.current, true
}

// Refresh loads the balance. A server failure is retried once after the
// retry delay; any other error is returned immediately.
func (r *Refresher) Refresh(ctx context.Context) (domain.Balance, error) {
	seq := r.next()

	amount, err := r.api.GetBalance(ctx)
	if err != nil && domain.KindOf(err) == domain.KindTransientServer {
		metrics.RetriesTotal.WithLabelValues("balance").Inc()
		slog.Debug("balance load failed, retrying", "delay", r.retryDelay, "error", err)

		select {
		case <-ctx.Done():
			return domain.Balance{}, ctx.Err()
		case <-r.clock.After(r.retryDelay):
		}
		amount, err = r.api.GetBalance(ctx)
		if err != nil && domain.KindOf(err) == domain.KindTransientServer {
			err = domain.Unavailable(err)
		}
	}
	if err != nil {
		err = fmt.Errorf("load balance: %w", err)
		r.publishError(seq, err)
		return domain.Balance{}, err
	}

	b := domain.Balance{Amount: amount, FetchedAt: r.clock.Now()}
	r.publish(seq, b)
	return b, nil
}

// TopUp parses raw as an amount of credits and adds it to the balance.
// Invalid, zero and negative amounts are rejected without a request.
func (r *Refresher) TopUp(ctx context.Context, raw string) (*domain.TopUpResult, error) {
	amount, err := ParseAmount(raw)
	if err != nil {
		return nil, err
	}

	seq := r.next()
	res, err := r.api.TopUp(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("top up: %w", err)
	}

	slog.Info("balance topped up",
		"amount", amount.String(), "balance", res.CurrentBalance.String(), "transaction_id", res.TransactionID)
	r.publish(seq, domain.Balance{Amount: res.CurrentBalance, FetchedAt: r.clock.Now()})
	return res, nil
}

// ParseAmount validates a user-entered top-up amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, domain.NewValidationError("please enter an amount")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("invalid amount %q", raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, domain.NewValidationError("amount must be greater than zero")
	}
	return amount, nil
}

func (r *Refresher) next() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

func (r *Refresher) publish(seq uint64, b domain.Balance) {
	// Observers are called under the lock so they see values in publish order.
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.published {
		slog.Debug("dropping stale balance", "seq", seq, "published", r.published)
		return
	}
	r.published = seq
	r.current = &b

	metrics.Balance.Set(b.Amount.InexactFloat64())
	if r.observer != nil {
		r.observer.OnBalance(b)
	}
}

func (r *Refresher) publishError(seq uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.published {
		return
	}
	if r.observer != nil {
		r.observer.OnBalanceError(err)
	}
}
