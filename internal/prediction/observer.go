package prediction

import (
	"context"

	"github.com/vietddude/predictctl/internal/core/domain"
)

// Observer receives scheduler events. Callbacks for one prediction are
// delivered sequentially from that prediction's goroutine; callbacks for
// different predictions may run concurrently.
type Observer interface {
	// OnPollUpdate is called after every pending status check.
	OnPollUpdate(State)
	// OnTerminal is called exactly once when polling ends on its own.
	OnTerminal(Outcome)
	// OnError is called for a failed status check that will be retried.
	OnError(Classified)
}

// StatusFetcher fetches the current record of a prediction.
type StatusFetcher interface {
	GetPrediction(ctx context.Context, id string) (*domain.Prediction, error)
}

// BalanceRefresher reloads the balance after a prediction finishes.
type BalanceRefresher interface {
	Refresh(ctx context.Context) (domain.Balance, error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	PollUpdate func(State)
	Terminal   func(Outcome)
	Error      func(Classified)
}

func (o ObserverFuncs) OnPollUpdate(s State) {
	if o.PollUpdate != nil {
		o.PollUpdate(s)
	}
}

func (o ObserverFuncs) OnTerminal(out Outcome) {
	if o.Terminal != nil {
		o.Terminal(out)
	}
}

func (o ObserverFuncs) OnError(c Classified) {
	if o.Error != nil {
		o.Error(c)
	}
}
