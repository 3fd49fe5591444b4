package prediction

import (
	"errors"

	"github.com/vietddude/predictctl/internal/core/domain"
)

// OutcomeKind is the classification of a single status check.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeNotFound
	OutcomeTransientServerError
	OutcomeOtherError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransientServerError:
		return "transient_server_error"
	default:
		return "other_error"
	}
}

// Classified is the result of classifying one status check.
type Classified struct {
	Kind       OutcomeKind
	Prediction *domain.Prediction // pending, completed and failed only
	Err        error              // error kinds only
	ErrorKind  domain.ErrorKind
	Message    string
}

// Classify maps a status response, or the error that replaced it, onto
// an OutcomeKind. Errors are classified by their transport tag first and by
// message text second (see domain.KindOf).
func Classify(p *domain.Prediction, err error) Classified {
	if err != nil {
		kind := domain.KindOf(err)
		c := Classified{Err: err, ErrorKind: kind, Message: userMessage(err)}
		switch kind {
		case domain.KindNotFound:
			c.Kind = OutcomeNotFound
		case domain.KindTransientServer:
			c.Kind = OutcomeTransientServerError
		default:
			c.Kind = OutcomeOtherError
		}
		return c
	}

	if p == nil {
		return Classified{Kind: OutcomeOtherError, Message: "empty response from server"}
	}

	switch p.Status {
	case domain.StatusPending:
		return Classified{Kind: OutcomePending, Prediction: p}
	case domain.StatusCompleted:
		return Classified{Kind: OutcomeCompleted, Prediction: p}
	default:
		return Classified{Kind: OutcomeFailed, Prediction: p}
	}
}

// userMessage prefers the friendly message of a tagged error over the
// full wrapped chain.
func userMessage(err error) string {
	var e *domain.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
