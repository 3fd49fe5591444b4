package prediction

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/predictctl/internal/core/domain"
)

type fakeAPI struct {
	calls []string
	resp  *domain.Prediction
	err   error
}

func (f *fakeAPI) SubmitPrediction(ctx context.Context, text string) (*domain.Prediction, error) {
	f.calls = append(f.calls, text)
	return f.resp, f.err
}

func TestSubmitRejectsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		api := &fakeAPI{resp: pending("p1")}
		s := NewSubmitter(api, nil)

		_, err := s.Submit(context.Background(), text)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Submit(%q) error = %v, want validation error", text, err)
		}
		if len(api.calls) != 0 {
			t.Errorf("Submit(%q) made %d requests", text, len(api.calls))
		}
	}
}

func TestSubmitPending(t *testing.T) {
	api := &fakeAPI{resp: pending("p1")}
	bal := &countingBalance{}
	s := NewSubmitter(api, bal)

	p, err := s.Submit(context.Background(), "  hello ")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if p.ID != "p1" || p.Status != domain.StatusPending {
		t.Errorf("prediction = %+v", p)
	}
	if len(api.calls) != 1 || api.calls[0] != "hello" {
		t.Errorf("calls = %q", api.calls)
	}
	if bal.count() != 0 {
		t.Error("balance refreshed for a pending prediction")
	}
}

func TestSubmitTerminalRefreshesBalance(t *testing.T) {
	api := &fakeAPI{resp: completed("p1")}
	bal := &countingBalance{}
	s := NewSubmitter(api, bal)

	if _, err := s.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if bal.count() != 1 {
		t.Errorf("balance refreshed %d times, want 1", bal.count())
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
		want domain.ErrorKind
	}{
		{"insufficient funds", &fakeAPI{err: &domain.Error{Kind: domain.KindInsufficientFunds, Status: 402}}, domain.KindInsufficientFunds},
		{"auth", &fakeAPI{err: domain.ErrAuthRequired}, domain.KindAuthRequired},
		{"missing id", &fakeAPI{resp: &domain.Prediction{Status: domain.StatusPending}}, domain.KindOther},
		{"nil response", &fakeAPI{}, domain.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSubmitter(tt.api, nil).Submit(context.Background(), "hello")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := domain.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}
