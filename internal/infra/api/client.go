// Package api implements the HTTP transport to the prediction service.
//
// This package contains:
//   - Client: JSON over HTTP with bearer auth and error tagging
//   - CallWithRetry: the fetch-level retry used for idempotent reads
//   - endpoint methods for auth, predictions and balance
//
// Every error returned by Client is, or wraps, a *domain.Error whose Kind
// is derived from the HTTP status or the "code" field of the error body.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/metrics"
)

// maxPlainErrorLen caps non-JSON error bodies surfaced to the user.
const maxPlainErrorLen = 100

// TokenSource returns the bearer token for authenticated calls. An empty
// token with a nil error means the user is not logged in.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the prediction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	retry      RetryConfig
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryConfig overrides the fetch-level retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		token: token,
		retry: DefaultRetryConfig,
	}
	if c.token == nil {
		c.token = func(context.Context) (string, error) { return "", nil }
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cleans up resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type request struct {
	endpoint    string // metrics label
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
}

func jsonRequest(endpoint, method, path string, payload any, auth bool) (request, error) {
	req := request{endpoint: endpoint, method: method, path: path, auth: auth}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("marshal request: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

// do executes r and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	// Missing credentials are a precondition failure, not a network error.
	if r.auth {
		token, err := c.token(ctx)
		if err != nil {
			return &domain.Error{Kind: domain.KindAuthRequired, Message: "cannot load session", Err: err}
		}
		if token == "" {
			return domain.ErrAuthRequired
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	slog.Debug("api request", "method", r.method, "path", r.path, "request_id", httpReq.Header.Get("X-Request-ID"))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		metrics.APIRequestsTotal.WithLabelValues(r.endpoint, "network_error").Inc()
		return &domain.Error{
			Kind:    domain.KindNetworkUnreachable,
			Message: domain.ErrNetworkUnreachable.Message,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(r.endpoint, "network_error").Inc()
		return &domain.Error{Kind: domain.KindNetworkUnreachable, Message: "read response", Err: err}
	}

	metrics.APILatency.WithLabelValues(r.endpoint).Observe(time.Since(start).Seconds())
	metrics.APIRequestsTotal.WithLabelValues(r.endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(resp, body)
		slog.Debug("api error", "path", r.path, "status", resp.StatusCode, "kind", apiErr.Kind, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		return &domain.Error{Kind: domain.KindOther, Message: fmt.Sprintf("unexpected content type %q", ct)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.Error{Kind: domain.KindOther, Message: "malformed JSON from server", Err: err}
	}
	return nil
}

// errorBody is the service's error envelope. detail is usually a string
// but validation failures return a list of objects.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

func statusError(resp *http.Response, body []byte) *domain.Error {
	e := &domain.Error{Status: resp.StatusCode, Kind: kindForStatus(resp.StatusCode)}

	var eb errorBody
	if strings.Contains(resp.Header.Get("Content-Type"), "json") && json.Unmarshal(body, &eb) == nil {
		var detail string
		if json.Unmarshal(eb.Detail, &detail) == nil {
			e.Message = detail
		} else if len(eb.Detail) > 0 {
			e.Message = string(eb.Detail)
		}
		if kind, ok := domain.ParseErrorKind(eb.Code); ok {
			e.Kind = kind
		}
	} else {
		e.Message = strings.TrimSpace(string(body))
		if r := []rune(e.Message); len(r) > maxPlainErrorLen {
			e.Message = string(r[:maxPlainErrorLen]) + "..."
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func kindForStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return domain.KindAuthRequired
	case status == http.StatusPaymentRequired:
		return domain.KindInsufficientFunds
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status >= 500:
		return domain.KindTransientServer
	default:
		// Left untagged; domain.KindOf falls back to the message text.
		return domain.KindOther
	}
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	return errors.Is(err, domain.ErrNetworkUnreachable)
}
