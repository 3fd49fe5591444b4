package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tags an error with the category the client acts on.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindValidation
	KindAuthRequired
	KindNetworkUnreachable
	KindTransientServer
	KindNotFound
	KindInsufficientFunds
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthRequired:
		return "auth_required"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindTransientServer:
		return "transient_server"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "other"
	}
}

// ParseErrorKind maps the optional "code" field of a server error body.
func ParseErrorKind(code string) (ErrorKind, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "validation", "validation_error":
		return KindValidation, true
	case "auth_required", "unauthorized":
		return KindAuthRequired, true
	case "transient_server", "internal_error", "unavailable":
		return KindTransientServer, true
	case "not_found":
		return KindNotFound, true
	case "insufficient_funds":
		return KindInsufficientFunds, true
	default:
		return KindOther, false
	}
}

// Error is the tagged error every layer of the client returns.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("http %d: %s", e.Status, msg)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of status or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrAuthRequired       = &Error{Kind: KindAuthRequired, Message: "authentication required"}
	ErrNetworkUnreachable = &Error{Kind: KindNetworkUnreachable, Message: "cannot reach server, check your connection"}
	ErrTransientServer    = &Error{Kind: KindTransientServer, Message: "service temporarily unavailable, try again later"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds, Message: "insufficient balance"}
)

// Unavailable tags err as a server failure that outlasted its retries, so
// the user sees ErrTransientServer's message instead of the raw server text.
func Unavailable(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindTransientServer && e.Message == ErrTransientServer.Message {
		return err
	}
	return &Error{Kind: KindTransientServer, Message: ErrTransientServer.Message, Err: err}
}

// NewValidationError reports bad local input. It is never sent over the network.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the tag carried by err. Untagged errors, and errors the
// transport could only tag as KindOther, fall back to LegacyKind on the
// message text.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindOther {
		return e.Kind
	}
	return LegacyKind(err.Error())
}

// LegacyKind classifies an error message by substring. The service only
// recently started returning structured codes and older deployments still
// signal these conditions through free text, so this stays as a fallback.
// It is fragile: a reworded server message silently changes the outcome.
func LegacyKind(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "не найден"):
		return KindNotFound
	case strings.Contains(lower, "internal server error"):
		return KindTransientServer
	case strings.Contains(lower, "баланс"), strings.Contains(lower, "средств"):
		return KindInsufficientFunds
	case strings.Contains(lower, "авторизац"):
		return KindAuthRequired
	default:
		return KindOther
	}
}
