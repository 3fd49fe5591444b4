package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestLegacyKind(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorKind
	}{
		{"Prediction not found", KindNotFound},
		{"Предсказание не найдено", KindNotFound},
		{"500 Internal Server Error", KindTransientServer},
		{"internal server error", KindTransientServer},
		{"Недостаточно средств на балансе", KindInsufficientFunds},
		{"Ошибка авторизации", KindAuthRequired},
		{"Bad Request", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		if got := LegacyKind(tt.msg); got != tt.want {
			t.Errorf("LegacyKind(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindOther},
		{"tagged", &Error{Kind: KindNotFound, Status: 404}, KindNotFound},
		{"wrapped tagged", fmt.Errorf("get: %w", &Error{Kind: KindTransientServer, Status: 503}), KindTransientServer},
		{"tagged other falls back to text", &Error{Kind: KindOther, Status: 400, Message: "Internal Server Error"}, KindTransientServer},
		{"tag wins over text", &Error{Kind: KindAuthRequired, Status: 401, Message: "not found"}, KindAuthRequired},
		{"plain error", errors.New("thing not found"), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("submit: %w", &Error{Kind: KindInsufficientFunds, Status: 402, Message: "Недостаточно средств на балансе"})

	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("expected errors.Is to match ErrInsufficientFunds")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is to match ErrNotFound")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindNotFound, Status: 404, Message: "missing"}, "http 404: missing"},
		{&Error{Kind: KindNetworkUnreachable, Message: "cannot reach server", Err: errors.New("dial tcp: refused")}, "cannot reach server: dial tcp: refused"},
		{&Error{Kind: KindTransientServer}, "transient_server"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestUnavailable(t *testing.T) {
	raw := &Error{Kind: KindTransientServer, Status: 500, Message: "Internal Server Error"}
	err := Unavailable(fmt.Errorf("get prediction failed after 3 attempts: %w", raw))

	var e *Error
	if !errors.As(err, &e) || e.Message != ErrTransientServer.Message {
		t.Fatalf("outer message = %v, want %q", err, ErrTransientServer.Message)
	}
	if KindOf(err) != KindTransientServer {
		t.Errorf("KindOf = %v, want transient_server", KindOf(err))
	}
	if !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("error %q lost the server text", err)
	}
	if again := Unavailable(fmt.Errorf("load balance: %w", err)); !errors.Is(again, err) || strings.Count(again.Error(), ErrTransientServer.Message) != 1 {
		t.Errorf("Unavailable wrapped twice: %q", again)
	}
}

func TestActionFor(t *testing.T) {
	tests := map[ErrorKind]NextAction{
		KindAuthRequired:       ActionLogin,
		KindInsufficientFunds:  ActionOpenBalance,
		KindNotFound:           ActionOpenHistory,
		KindNetworkUnreachable: ActionRetry,
		KindTransientServer:    ActionRetry,
		KindOther:              ActionRetry,
	}
	for kind, want := range tests {
		if got := ActionFor(kind); got != want {
			t.Errorf("ActionFor(%v) = %v, want %v", kind, got, want)
		}
	}
}
