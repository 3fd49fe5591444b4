package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/vietddude/predictctl/internal/core/domain"
)

func staticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second, staticToken("secret"),
		WithRetryConfig(RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}))
}

func TestClient_SubmitPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions/predict" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want Bearer secret", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing X-Request-ID")
		}

		var body domain.PredictionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body.Data.Text != "hello" {
			t.Errorf("text = %q, want hello", body.Data.Text)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prediction_id":"p1","status":"pending","cost":1.0,"created_at":"2024-05-01T10:00:00.123456"}`))
	}))
	defer server.Close()

	p, err := newTestClient(server.URL).SubmitPrediction(context.Background(), "  hello  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "p1" || p.Status != domain.StatusPending {
		t.Errorf("got %+v, want p1 pending", p)
	}
	if !p.Cost.Equal(decimal.NewFromInt(1)) {
		t.Errorf("cost = %s, want 1", p.Cost)
	}
	if p.CreatedAt.Year() != 2024 || p.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at = %v, want 2024 UTC", p.CreatedAt.Time)
	}
}

func TestClient_MissingTokenSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, staticToken(""))
	_, err := c.GetBalance(context.Background())
	if !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times, want 0", hits.Load())
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantKind    domain.ErrorKind
		wantMsg     string
	}{
		{"unauthorized", 401, "application/json", `{"detail":"Could not validate credentials"}`, domain.KindAuthRequired, "Could not validate credentials"},
		{"payment required", 402, "application/json", `{"detail":"Недостаточно средств на балансе"}`, domain.KindInsufficientFunds, "Недостаточно средств"},
		{"not found", 404, "application/json", `{"detail":"Предсказание не найдено"}`, domain.KindNotFound, "не найдено"},
		{"server error text", 500, "text/plain", "Internal Server Error", domain.KindTransientServer, "Internal Server Error"},
		{"bad gateway empty", 502, "", "", domain.KindTransientServer, "Bad Gateway"},
		{"forbidden", 403, "application/json", `{"detail":"Нет доступа к этому предсказанию"}`, domain.KindOther, "Нет доступа"},
		{"structured code wins", 400, "application/json", `{"detail":"gone","code":"not_found"}`, domain.KindNotFound, "gone"},
		{"legacy text fallback", 400, "application/json", `{"detail":"Prediction not found"}`, domain.KindNotFound, "Prediction not found"},
		{"validation list", 422, "application/json", `{"detail":[{"loc":["body","data"],"msg":"field required"}]}`, domain.KindOther, "field required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, time.Second, staticToken("secret"),
				WithRetryConfig(RetryConfig{MaxAttempts: 1, Delay: time.Millisecond}))
			_, err := c.CurrentUser(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := domain.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf = %v, want %v (err: %v)", got, tt.wantKind, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClient_TruncatesPlainErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ascii", strings.Repeat("x", 250)},
		{"cyrillic", strings.Repeat("ошибка ", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CurrentUser(context.Background())
			var apiErr *domain.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *domain.Error", err)
			}
			if !utf8.ValidString(apiErr.Message) {
				t.Fatalf("message is not valid UTF-8: %q", apiErr.Message)
			}
			want := string([]rune(tt.body)[:maxPlainErrorLen]) + "..."
			if apiErr.Message != want {
				t.Errorf("message = %q, want %q", apiErr.Message, want)
			}
		})
	}
}

func TestClient_NetworkUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).GetHistory(context.Background())
	if !errors.Is(err, domain.ErrNetworkUnreachable) {
		t.Fatalf("err = %v, want ErrNetworkUnreachable", err)
	}
	if !IsNetworkError(err) {
		t.Errorf("IsNetworkError = false")
	}
	if !strings.Contains(err.Error(), "cannot reach server") {
		t.Errorf("error %q lacks friendly message", err)
	}
}

func TestClient_GetPredictionRetry(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantKind  domain.ErrorKind
		wantErr   bool
	}{
		{"persistent 500", []int{500, 500, 500, 500}, 3, domain.KindTransientServer, true},
		{"recovers on third", []int{500, 503, 200}, 3, 0, false},
		{"not found is not retried", []int{404}, 1, domain.KindNotFound, true},
		{"forbidden is not retried", []int{403}, 1, domain.KindOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[int(n)-1]
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte(`{"prediction_id":"p1","status":"completed","result":{"prediction":"X","confidence":0.87},"cost":1,"created_at":"2024-05-01T10:00:00Z"}`))
					return
				}
				_, _ = w.Write([]byte(`{"detail":"boom"}`))
			}))
			defer server.Close()

			p, err := newTestClient(server.URL).GetPrediction(context.Background(), "p1")
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if got := domain.KindOf(err); got != tt.wantKind {
					t.Errorf("KindOf = %v, want %v", got, tt.wantKind)
				}
				var apiErr *domain.Error
				exhausted := errors.As(err, &apiErr) && apiErr.Message == domain.ErrTransientServer.Message
				if exhausted != (tt.wantKind == domain.KindTransientServer) {
					t.Errorf("err = %v, unavailable message = %v", err, exhausted)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if label, conf, ok := p.Label(); !ok || label != "X" || conf != 0.87 {
				t.Errorf("Label = %q %v %v, want X 0.87", label, conf, ok)
			}
		})
	}
}

func TestClient_GetPredictionRequiresID(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second, staticToken("secret"))
	if _, err := c.GetPrediction(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestClient_GetBalance(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{`{"balance": 12.5}`, "12.5", false},
		{`{"amount": 3}`, "3", false},
		{`{"credits": 3}`, "", true},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(tt.body))
		}))

		got, err := newTestClient(server.URL).GetBalance(context.Background())
		server.Close()

		if tt.wantErr {
			if err == nil {
				t.Errorf("body %s: expected error", tt.body)
			}
			continue
		}
		if err != nil {
			t.Errorf("body %s: unexpected error: %v", tt.body, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("body %s: balance = %s, want %s", tt.body, got, tt.want)
		}
	}
}

func TestClient_TopUpSendsNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if amount, ok := body["amount"].(float64); !ok || amount != 10.5 {
			t.Errorf("amount = %#v, want number 10.5", body["amount"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"previous_balance":1,"current_balance":11.5,"transaction_id":"t1"}`))
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).TopUp(context.Background(), decimal.RequireFromString("10.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CurrentBalance.StringFixed(2) != "11.50" || res.TransactionID != "t1" {
		t.Errorf("got %+v", res)
	}
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send Authorization")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "pw" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, nil)
	tok, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "tok" {
		t.Errorf("AccessToken = %q, want tok", tok.AccessToken)
	}
}

func TestClient_CurrentUser(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  domain.UserID
		email string
	}{
		{"integer id", `{"id": 1, "username": "alice", "email": "a@example.com"}`, "1", "a@example.com"},
		{"string id", `{"id": "u-1", "username": "alice"}`, "u-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users/me" || r.Method != http.MethodGet {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("Authorization = %q, want Bearer secret", got)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			user, err := newTestClient(server.URL).CurrentUser(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID != tt.want || user.Username != "alice" || user.Email != tt.email {
				t.Errorf("got %+v, want id %s", user, tt.want)
			}
		})
	}
}

func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("register must not send Authorization")
		}
		var reg domain.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			t.Errorf("decode: %v", err)
		}
		if reg.Username != "bob" || reg.Password != "pw" || reg.Email != "b@example.com" {
			t.Errorf("registration = %+v", reg)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42, "username": "bob", "email": "b@example.com"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, nil)
	user, err := c.Register(context.Background(), domain.Registration{Username: "bob", Password: "pw", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "42" || user.Username != "bob" {
		t.Errorf("got %+v, want id 42", user)
	}
}

func TestClient_RegisterDuplicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Пользователь уже существует"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, nil).Register(context.Background(), domain.Registration{Username: "bob", Password: "pw"})
	if err == nil || !strings.Contains(err.Error(), "уже существует") {
		t.Fatalf("err = %v, want server detail", err)
	}
}
