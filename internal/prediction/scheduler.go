package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/metrics"
)

// Scheduler polls predictions until they reach a terminal state. It keeps
// at most one PollState per prediction id, and each PollState has at most
// one status request in flight.
type Scheduler struct {
	fetcher  StatusFetcher
	observer Observer
	balance  BalanceRefresher
	policy   Policy
	clock    clockwork.Clock

	mu    sync.Mutex
	polls map[string]*PollState
	wg    sync.WaitGroup
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithConfig sets the polling policy.
func WithConfig(cfg Config) SchedulerOption {
	return func(s *Scheduler) { s.policy = NewPolicy(cfg) }
}

// WithBalanceRefresher reloads the balance after completed/failed predictions.
func WithBalanceRefresher(b BalanceRefresher) SchedulerOption {
	return func(s *Scheduler) { s.balance = b }
}

// NewScheduler creates a scheduler reporting to observer.
func NewScheduler(fetcher StatusFetcher, observer Observer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		fetcher:  fetcher,
		observer: observer,
		policy:   NewPolicy(DefaultConfig),
		clock:    clockwork.NewRealClock(),
		polls:    make(map[string]*PollState),
	}
	if s.observer == nil {
		s.observer = ObserverFuncs{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle lets the caller wait for, or abandon, one poll loop.
type Handle struct {
	ps    *PollState
	sched *Scheduler
}

// ID returns the prediction id.
func (h *Handle) ID() string { return h.ps.id }

// Done is closed when polling ends, whether by outcome or by Stop.
func (h *Handle) Done() <-chan struct{} { return h.ps.done }

// Outcome returns the terminal outcome. ok is false while polling is still
// running or if it was stopped before reaching one.
func (h *Handle) Outcome() (Outcome, bool) {
	select {
	case <-h.ps.done:
	default:
		return Outcome{}, false
	}
	h.ps.mu.Lock()
	defer h.ps.mu.Unlock()
	if h.ps.result == nil {
		return Outcome{}, false
	}
	return *h.ps.result, true
}

// Wait blocks until polling ends or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-h.ps.done:
	}
	out, ok := h.Outcome()
	if !ok {
		return Outcome{}, context.Canceled
	}
	return out, nil
}

// Stop abandons this poll loop.
func (h *Handle) Stop() { h.sched.stop(h.ps) }

// Start begins polling p. A record that is already terminal is reported
// immediately without any request. Starting an id that is already being
// polled replaces the previous loop.
//
// The balance is not refreshed for records that arrive terminal; the
// caller that obtained such a record is responsible for that.
func (s *Scheduler) Start(ctx context.Context, p *domain.Prediction) (*Handle, error) {
	if p == nil || p.ID == "" {
		return nil, domain.NewValidationError("prediction id is required")
	}

	pctx, cancel := context.WithCancel(ctx)
	ps := newPollState(p.ID, cancel)
	ps.last = p
	h := &Handle{ps: ps, sched: s}

	if p.Status.IsTerminal() {
		c := Classify(p, nil)
		d := s.policy.Decide(0, 0, c)
		if err := ps.transition(PhaseTerminal); err != nil {
			cancel()
			return nil, fmt.Errorf("start %s: %w", p.ID, err)
		}
		out := s.outcome(ps, c, d)
		ps.result = &out
		cancel()
		close(ps.done)
		s.observer.OnTerminal(out)
		return h, nil
	}

	s.mu.Lock()
	if prev, ok := s.polls[p.ID]; ok {
		slog.Debug("replacing poll loop", "prediction_id", p.ID)
		prev.teardown()
		delete(s.polls, p.ID)
	}
	delay := s.policy.InitialDelay()
	ps.setTimer(s.clock.NewTimer(delay), delay)
	s.polls[p.ID] = ps
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.ActivePolls.Inc()
	slog.Debug("polling started", "prediction_id", p.ID, "first_check_in", delay)

	go s.run(pctx, ps)
	return h, nil
}

// Stop abandons polling for id. It reports whether a loop was running.
func (s *Scheduler) Stop(id string) bool {
	s.mu.Lock()
	ps, ok := s.polls[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.stop(ps)
	return true
}

// StopAll abandons every loop and waits for their goroutines to exit.
// It must not be called from an Observer callback.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	polls := make([]*PollState, 0, len(s.polls))
	for _, ps := range s.polls {
		polls = append(polls, ps)
	}
	s.mu.Unlock()

	for _, ps := range polls {
		s.stop(ps)
	}
	s.wg.Wait()
}

// Active returns the number of predictions being polled.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polls)
}

// Polling reports whether id currently has a poll loop.
func (s *Scheduler) Polling(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.polls[id]
	return ok
}

func (s *Scheduler) stop(ps *PollState) {
	s.mu.Lock()
	if cur, ok := s.polls[ps.id]; ok && cur == ps {
		delete(s.polls, ps.id)
	}
	s.mu.Unlock()
	ps.teardown()
}

func (s *Scheduler) run(ctx context.Context, ps *PollState) {
	defer s.finish(ps)

	for {
		ps.mu.Lock()
		timer := ps.timer
		ps.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
		}

		if err := ps.transition(PhasePolling); err != nil {
			slog.Warn("poll loop in unexpected phase", "prediction_id", ps.id, "error", err)
			return
		}

		p, err := s.fetcher.GetPrediction(ctx, ps.id)
		if ctx.Err() != nil {
			// Torn down while the request was in flight.
			return
		}

		c := Classify(p, err)
		metrics.PollOutcomes.WithLabelValues(c.Kind.String()).Inc()

		ps.mu.Lock()
		d := s.policy.Decide(ps.attempt, ps.errorAttempt, c)
		ps.attempt = d.Attempt
		ps.errorAttempt = d.ErrorAttempt
		if c.Prediction != nil {
			ps.last = c.Prediction
		}
		ps.mu.Unlock()

		if d.Stop {
			s.terminate(ctx, ps, c, d)
			return
		}

		ps.setTimer(s.clock.NewTimer(d.Delay), d.Delay)
		if c.Kind == OutcomeTransientServerError {
			metrics.RetriesTotal.WithLabelValues("poll").Inc()
			slog.Debug("status check failed, retrying",
				"prediction_id", ps.id, "error_attempt", d.ErrorAttempt, "delay", d.Delay, "error", c.Err)
			s.observer.OnError(c)
			continue
		}

		slog.Debug("prediction still pending", "prediction_id", ps.id, "attempt", d.Attempt, "next_check_in", d.Delay)
		s.observer.OnPollUpdate(ps.snapshot())
	}
}

func (s *Scheduler) terminate(ctx context.Context, ps *PollState, c Classified, d Decision) {
	if err := ps.transition(PhaseTerminal); err != nil {
		slog.Warn("cannot finish poll loop", "prediction_id", ps.id, "error", err)
		return
	}

	out := s.outcome(ps, c, d)
	ps.mu.Lock()
	ps.result = &out
	ps.mu.Unlock()

	slog.Info("polling finished", "prediction_id", ps.id, "outcome", out.Kind, "attempts", out.Attempts)

	s.mu.Lock()
	if cur, ok := s.polls[ps.id]; ok && cur == ps {
		delete(s.polls, ps.id)
	}
	s.mu.Unlock()

	s.observer.OnTerminal(out)

	if s.balance != nil && (out.Kind == TerminalCompleted || out.Kind == TerminalFailed) {
		if _, err := s.balance.Refresh(ctx); err != nil {
			slog.Debug("balance refresh after prediction failed", "prediction_id", ps.id, "error", err)
		}
	}
}

func (s *Scheduler) outcome(ps *PollState, c Classified, d Decision) Outcome {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := Outcome{
		ID:           ps.id,
		Kind:         d.Terminal,
		Prediction:   ps.last,
		Err:          c.Err,
		Message:      d.Message,
		Next:         d.Next,
		Attempts:     ps.attempt,
		ErrorRetries: ps.errorAttempt,
	}
	if out.Kind == TerminalGaveUp && out.ErrorRetries > 0 {
		// The final failure is not a retry.
		out.ErrorRetries--
	}
	return out
}

func (s *Scheduler) finish(ps *PollState) {
	s.mu.Lock()
	if cur, ok := s.polls[ps.id]; ok && cur == ps {
		delete(s.polls, ps.id)
	}
	s.mu.Unlock()

	ps.teardown()
	metrics.ActivePolls.Dec()
	close(ps.done)
	s.wg.Done()
}
