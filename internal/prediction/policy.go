package prediction

import (
	"math"
	"time"

	"github.com/vietddude/predictctl/internal/core/domain"
)

// Config drives status polling.
type Config struct {
	InitialDelay    time.Duration
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	ErrorRetryDelay time.Duration
	MaxErrorRetries int
}

// DefaultConfig: first check after 2s, then 2s, 3s, 4.5s, ... capped at
// 10s; up to 3 retries 5s apart when the server fails.
var DefaultConfig = Config{
	InitialDelay:    2 * time.Second,
	BaseDelay:       2 * time.Second,
	MaxDelay:        10 * time.Second,
	Multiplier:      1.5,
	ErrorRetryDelay: 5 * time.Second,
	MaxErrorRetries: 3,
}

// TerminalKind says why polling stopped.
type TerminalKind int

const (
	TerminalCompleted TerminalKind = iota
	TerminalFailed
	TerminalNotFound
	// TerminalGaveUp is client-only: the server never reported a final
	// status, the prediction may still finish and show up in history.
	TerminalGaveUp
	TerminalError
)

func (k TerminalKind) String() string {
	switch k {
	case TerminalCompleted:
		return "completed"
	case TerminalFailed:
		return "failed"
	case TerminalNotFound:
		return "not_found"
	case TerminalGaveUp:
		return "gave_up"
	default:
		return "error"
	}
}

// Outcome is delivered once per prediction when polling ends.
type Outcome struct {
	ID           string
	Kind         TerminalKind
	Prediction   *domain.Prediction
	Err          error
	Message      string
	Next         domain.NextAction
	Attempts     int
	ErrorRetries int
}

// Decision is what the policy wants the scheduler to do next.
type Decision struct {
	Stop         bool
	Delay        time.Duration
	Attempt      int
	ErrorAttempt int
	Terminal     TerminalKind
	Next         domain.NextAction
	Message      string
}

// Policy turns a classified status check into a Decision.
type Policy struct {
	cfg Config
}

// NewPolicy fills zero fields of cfg from DefaultConfig.
func NewPolicy(cfg Config) Policy {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig.InitialDelay
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = DefaultConfig.Multiplier
	}
	if cfg.ErrorRetryDelay <= 0 {
		cfg.ErrorRetryDelay = DefaultConfig.ErrorRetryDelay
	}
	if cfg.MaxErrorRetries < 0 {
		cfg.MaxErrorRetries = 0
	}
	return Policy{cfg: cfg}
}

// InitialDelay is the wait between submission and the first status check.
func (p Policy) InitialDelay() time.Duration {
	return p.cfg.InitialDelay
}

// Backoff returns min(base * multiplier^attempt, max).
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.Multiplier, float64(attempt))
	if delay > float64(p.cfg.MaxDelay) {
		delay = float64(p.cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Decide applies the retry rules to one classified check. attempt counts
// pending responses, errorAttempt counts consecutive server failures.
func (p Policy) Decide(attempt, errorAttempt int, c Classified) Decision {
	d := Decision{Attempt: attempt, ErrorAttempt: errorAttempt}

	switch c.Kind {
	case OutcomePending:
		d.Delay = p.Backoff(attempt)
		d.Attempt = attempt + 1
		d.ErrorAttempt = 0
	case OutcomeCompleted:
		d.Stop = true
		d.Terminal = TerminalCompleted
		d.Next = domain.ActionNewPrediction
		d.ErrorAttempt = 0
	case OutcomeFailed:
		d.Stop = true
		d.Terminal = TerminalFailed
		d.Next = domain.ActionRetry
		d.Message = "prediction failed, please try again"
		d.ErrorAttempt = 0
	case OutcomeNotFound:
		d.Stop = true
		d.Terminal = TerminalNotFound
		d.Next = domain.ActionOpenHistory
		d.Message = "prediction not found, it may have been removed"
	case OutcomeTransientServerError:
		d.ErrorAttempt = errorAttempt + 1
		if d.ErrorAttempt > p.cfg.MaxErrorRetries {
			d.Stop = true
			d.Terminal = TerminalGaveUp
			d.Next = domain.ActionOpenHistory
			d.Message = "could not get the result because of server problems, check history later"
			return d
		}
		d.Delay = p.cfg.ErrorRetryDelay
	default:
		d.Stop = true
		d.Terminal = TerminalError
		d.Next = domain.ActionFor(c.ErrorKind)
		d.Message = c.Message
	}
	return d
}
