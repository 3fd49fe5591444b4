package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vietddude/predictctl/internal/core/domain"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok domain.Token
	err := c.do(ctx, request{
		endpoint:    "token",
		method:      http.MethodPost,
		path:        "/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &domain.Error{Kind: domain.KindOther, Message: "no access token in response"}
	}
	return &tok, nil
}

// Register creates a new account. It does not require a session.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	req, err := jsonRequest("register", http.MethodPost, "/users", reg, false)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the account the session belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, request{endpoint: "me", method: http.MethodGet, path: "/users/me", auth: true}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SubmitPrediction queues a prediction for text. It is never retried: each
// call is charged against the balance.
func (c *Client) SubmitPrediction(ctx context.Context, text string) (*domain.Prediction, error) {
	body := domain.PredictionRequest{Data: domain.PredictionInput{Text: strings.TrimSpace(text)}}
	req, err := jsonRequest("predict", http.MethodPost, "/predictions/predict", body, true)
	if err != nil {
		return nil, err
	}
	var p domain.Prediction
	if err := c.do(ctx, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPrediction fetches one prediction, retrying server-side failures.
func (c *Client) GetPrediction(ctx context.Context, id string) (*domain.Prediction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("prediction id is required")
	}
	return CallWithRetry(ctx, c.retry, "get prediction", func(ctx context.Context) (*domain.Prediction, error) {
		var p domain.Prediction
		err := c.do(ctx, request{
			endpoint: "prediction",
			method:   http.MethodGet,
			path:     "/predictions/" + url.PathEscape(id),
			auth:     true,
		}, &p)
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// GetHistory fetches the user's predictions, retrying server-side failures.
func (c *Client) GetHistory(ctx context.Context) (*domain.History, error) {
	return CallWithRetry(ctx, c.retry, "get history", func(ctx context.Context) (*domain.History, error) {
		var h domain.History
		if err := c.do(ctx, request{endpoint: "history", method: http.MethodGet, path: "/predictions", auth: true}, &h); err != nil {
			return nil, err
		}
		return &h, nil
	})
}

// GetBalance returns the current balance. Retries are left to the caller.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var resp domain.BalanceResponse
	if err := c.do(ctx, request{endpoint: "balance", method: http.MethodGet, path: "/balance", auth: true}, &resp); err != nil {
		return decimal.Zero, err
	}
	amount, ok := resp.Value()
	if !ok {
		return decimal.Zero, &domain.Error{Kind: domain.KindOther, Message: "unexpected balance format"}
	}
	return amount, nil
}

// TopUp adds amount to the balance.
func (c *Client) TopUp(ctx context.Context, amount decimal.Decimal) (*domain.TopUpResult, error) {
	req, err := jsonRequest("topup", http.MethodPost, "/balance/topup", domain.TopUpRequest{Amount: amount.InexactFloat64()}, true)
	if err != nil {
		return nil, err
	}
	var res domain.TopUpResult
	if err := c.do(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
