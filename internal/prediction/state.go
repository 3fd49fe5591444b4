package prediction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vietddude/predictctl/internal/core/domain"
)

// Phase is the scheduler-side state of one prediction.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhasePolling  Phase = "polling"
	PhaseTerminal Phase = "terminal"
)

// ErrInvalidTransition is returned when an invalid phase change is attempted.
var ErrInvalidTransition = errors.New("invalid phase transition")

// ValidTransitions defines allowed phase transitions.
// Terminal has no way out: a finished prediction is never polled again.
var ValidTransitions = map[Phase][]Phase{
	PhasePending: {PhasePolling, PhaseTerminal},
	PhasePolling: {PhasePolling, PhaseTerminal},
}

// CanTransition checks if a transition from one phase to another is valid.
func CanTransition(from, to Phase) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// State is a read-only snapshot of a PollState handed to observers.
type State struct {
	ID           string
	Phase        Phase
	Attempt      int
	ErrorAttempt int
	NextDelay    time.Duration
	Prediction   *domain.Prediction
}

// PollState tracks one in-flight prediction. It owns its timer and the
// context of its current request, so tearing it down stops both.
type PollState struct {
	id           string
	phase        Phase
	attempt      int
	errorAttempt int
	nextDelay    time.Duration
	last         *domain.Prediction

	mu     sync.Mutex
	timer  clockwork.Timer
	cancel context.CancelFunc
	done   chan struct{}
	result *Outcome
}

func newPollState(id string, cancel context.CancelFunc) *PollState {
	return &PollState{
		id:     id,
		phase:  PhasePending,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (ps *PollState) transition(to Phase) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !CanTransition(ps.phase, to) {
		return ErrInvalidTransition
	}
	ps.phase = to
	return nil
}

func (ps *PollState) setTimer(t clockwork.Timer, delay time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.timer = t
	ps.nextDelay = delay
}

// teardown cancels the in-flight request and the pending timer.
func (ps *PollState) teardown() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.timer != nil {
		ps.timer.Stop()
	}
	ps.cancel()
}

func (ps *PollState) snapshot() State {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return State{
		ID:           ps.id,
		Phase:        ps.phase,
		Attempt:      ps.attempt,
		ErrorAttempt: ps.errorAttempt,
		NextDelay:    ps.nextDelay,
		Prediction:   ps.last,
	}
}
