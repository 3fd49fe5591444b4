package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vietddude/predictctl/internal/core/domain"
)

// PredictionAPI is the part of the service client the submitter needs.
type PredictionAPI interface {
	SubmitPrediction(ctx context.Context, text string) (*domain.Prediction, error)
}

// PredictionSubmitter creates predictions.
type PredictionSubmitter interface {
	Submit(ctx context.Context, text string) (*domain.Prediction, error)
}

// Submitter validates input and sends it to the service. It never polls;
// pending records are handed to a Scheduler by the caller.
type Submitter struct {
	api     PredictionAPI
	balance BalanceRefresher
}

var _ PredictionSubmitter = (*Submitter)(nil)

// NewSubmitter creates a Submitter. balance may be nil.
func NewSubmitter(api PredictionAPI, balance BalanceRefresher) *Submitter {
	return &Submitter{api: api, balance: balance}
}

// Submit sends text for prediction. Blank text is rejected before any
// request is made. When the service answers with a finished record the
// balance is refreshed, since the charge has already happened.
func (s *Submitter) Submit(ctx context.Context, text string) (*domain.Prediction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("please enter text for the prediction")
	}

	p, err := s.api.SubmitPrediction(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("submit prediction: %w", err)
	}
	if p == nil || p.ID == "" {
		return nil, &domain.Error{Kind: domain.KindOther, Message: "no prediction id in response"}
	}

	slog.Info("prediction submitted", "prediction_id", p.ID, "status", p.Status)

	if p.Status.IsTerminal() && s.balance != nil {
		if _, err := s.balance.Refresh(ctx); err != nil {
			slog.Debug("balance refresh after submit failed", "prediction_id", p.ID, "error", err)
		}
	}
	return p, nil
}
