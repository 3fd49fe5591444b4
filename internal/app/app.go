// Package app wires the prediction client together: session storage, the
// service client, polling, balance, history and terminal output.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/vietddude/predictctl/internal/balance"
	"github.com/vietddude/predictctl/internal/core/config"
	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/history"
	"github.com/vietddude/predictctl/internal/infra/api"
	redisclient "github.com/vietddude/predictctl/internal/infra/redis"
	"github.com/vietddude/predictctl/internal/infra/session"
	"github.com/vietddude/predictctl/internal/metrics"
	"github.com/vietddude/predictctl/internal/prediction"
	"github.com/vietddude/predictctl/internal/render"
)

// App is the client application.
type App struct {
	cfg       *config.AppConfig
	clock     clockwork.Clock
	client    *api.Client
	store     session.Store
	redis     *redisclient.Client
	out       *render.Renderer
	balance   *balance.Refresher
	scheduler *prediction.Scheduler
	submitter *prediction.Submitter
	history   *history.Loader
	metrics   *metrics.Server
	log       *slog.Logger
}

type options struct {
	clock      clockwork.Clock
	store      session.Store
	httpClient *http.Client
	verbose    bool
}

// Option customizes New.
type Option func(*options)

// WithClock replaces the wall clock used for polling and retries.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSessionStore overrides the store selected by the session config.
func WithSessionStore(s session.Store) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient replaces the HTTP client of the service client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithVerbose prints every pending status check.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// New creates an App writing user output to w.
func New(cfg *config.AppConfig, w io.Writer, opts ...Option) (*App, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:   cfg,
		clock: o.clock,
		out:   render.New(w, o.verbose),
		log:   slog.Default(),
	}

	// 1. Session storage
	a.store = o.store
	if a.store == nil {
		store, rdb, err := newSessionStore(cfg)
		if err != nil {
			return nil, err
		}
		a.store, a.redis = store, rdb
	}

	// 2. Service client
	clientOpts := []api.Option{api.WithRetryConfig(api.RetryConfig{
		MaxAttempts: cfg.FetchRetry.MaxAttempts,
		Delay:       cfg.FetchRetry.Delay,
	})}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	a.client = api.NewClient(cfg.API.URL, cfg.API.Timeout, session.TokenFunc(a.store), clientOpts...)

	// 3. Balance, polling, history
	a.balance = balance.NewRefresher(a.client, a.out,
		balance.WithClock(a.clock),
		balance.WithRetryDelay(cfg.Balance.RetryDelay),
	)

	retries := prediction.DefaultConfig.MaxErrorRetries
	if cfg.Polling.MaxErrorRetries != nil {
		retries = *cfg.Polling.MaxErrorRetries
	}

	obs := &observer{out: a.out}
	a.scheduler = prediction.NewScheduler(a.client, obs,
		prediction.WithClock(a.clock),
		prediction.WithBalanceRefresher(a.balance),
		prediction.WithConfig(prediction.Config{
			InitialDelay:    cfg.Polling.InitialDelay,
			BaseDelay:       cfg.Polling.BaseDelay,
			MaxDelay:        cfg.Polling.MaxDelay,
			Multiplier:      cfg.Polling.Multiplier,
			ErrorRetryDelay: cfg.Polling.ErrorRetryDelay,
			MaxErrorRetries: retries,
		}),
	)
	a.submitter = prediction.NewSubmitter(a.client, a.balance)
	a.history = history.NewLoader(a.client, a.scheduler, a.out)
	obs.history = a.history

	// 4. Watch-mode metrics
	if cfg.Metrics.Port > 0 {
		a.metrics = metrics.NewServer(a.scheduler, cfg.Metrics.Port)
	}

	return a, nil
}

func newSessionStore(cfg *config.AppConfig) (session.Store, *redisclient.Client, error) {
	switch cfg.Session.Backend {
	case "redis":
		rdb, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis session store: %w", err)
		}
		slog.Debug("Using Redis session store", "profile", cfg.Session.Profile)
		return redisclient.NewSessionStore(rdb, cfg.Session.Profile, cfg.Session.TTL), rdb, nil
	case "memory":
		return session.NewMemoryStore(), nil, nil
	case "file", "":
		slog.Debug("Using file session store", "path", cfg.Session.Path)
		return session.NewFileStore(cfg.Session.Path), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// Renderer returns the terminal output, for printing errors.
func (a *App) Renderer() *render.Renderer { return a.out }

// Login exchanges credentials for a token and saves it.
func (a *App) Login(ctx context.Context, username, password string) error {
	tok, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	err = a.store.Save(ctx, &session.Session{
		Token:     tok.AccessToken,
		TokenType: tok.TokenType,
		Username:  username,
		SavedAt:   a.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.log.Info("Logged in", "username", username)
	return nil
}

// Register creates an account.
func (a *App) Register(ctx context.Context, reg domain.Registration) error {
	if reg.Username == "" || reg.Password == "" {
		return domain.NewValidationError("username and password are required")
	}
	user, err := a.client.Register(ctx, reg)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	a.out.User(user)
	return nil
}

// WhoAmI prints the signed-in account.
func (a *App) WhoAmI(ctx context.Context) error {
	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	a.out.User(user)
	return nil
}

// Logout forgets the saved token.
func (a *App) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// Predict submits text. With wait set, a pending prediction is polled until
// it finishes and the outcome is returned; without it the pending record
// is printed and the outcome is nil.
func (a *App) Predict(ctx context.Context, text string, wait bool) (*prediction.Outcome, error) {
	p, err := a.submitter.Submit(ctx, text)
	if err != nil {
		return nil, err
	}
	if !wait && !p.Status.IsTerminal() {
		a.out.Prediction(p)
		return nil, nil
	}
	return a.poll(ctx, p)
}

// Status prints one prediction. With watch set, a pending prediction is
// polled until it finishes.
func (a *App) Status(ctx context.Context, id string, watch bool) (*prediction.Outcome, error) {
	p, err := a.client.GetPrediction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get prediction %s: %w", id, err)
	}
	if !watch || p.Status.IsTerminal() {
		a.out.Prediction(p)
		return nil, nil
	}
	return a.poll(ctx, p)
}

func (a *App) poll(ctx context.Context, p *domain.Prediction) (*prediction.Outcome, error) {
	h, err := a.scheduler.Start(ctx, p)
	if err != nil {
		return nil, err
	}
	out, err := h.Wait(ctx)
	if err != nil {
		h.Stop()
		return nil, err
	}
	return &out, nil
}

// History prints the prediction history. With resume set, pending records
// are polled until they all finish.
func (a *App) History(ctx context.Context, resume bool) error {
	if _, err := a.history.Load(ctx); err != nil {
		return err
	}
	if !resume {
		return nil
	}

	handles, err := a.history.Resume(ctx)
	for _, h := range handles {
		if _, werr := h.Wait(ctx); werr != nil {
			return werr
		}
	}
	return err
}

// Balance prints the current balance.
func (a *App) Balance(ctx context.Context) error {
	_, err := a.balance.Refresh(ctx)
	return err
}

// TopUp adds raw credits to the balance.
func (a *App) TopUp(ctx context.Context, raw string) error {
	res, err := a.balance.TopUp(ctx, raw)
	if err != nil {
		return err
	}
	a.out.TopUp(res)
	return nil
}

// Watch serves metrics and keeps polling every pending prediction in the
// history, reloading it periodically, until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	if a.metrics != nil {
		go func() {
			if err := a.metrics.Start(); err != nil && err != http.ErrServerClosed {
				a.log.Error("Metrics server failed", "error", err)
			}
		}()
		a.log.Info("Metrics server started", "port", a.cfg.Metrics.Port)
	}

	if _, err := a.balance.Refresh(ctx); err != nil {
		a.log.Warn("Failed to load balance", "error", err)
	}

	ticker := a.clock.NewTicker(a.cfg.History.RefreshInterval)
	defer ticker.Stop()

	for {
		if _, err := a.history.Load(ctx); err != nil {
			switch {
			case errors.Is(err, domain.ErrAuthRequired):
				return err
			case api.IsNetworkError(err):
				a.log.Warn("Server unreachable, retrying on next refresh", "interval", a.cfg.History.RefreshInterval)
			default:
				a.log.Warn("Failed to load history", "error", err)
			}
		} else if _, err := a.history.Resume(ctx); err != nil {
			a.log.Warn("Failed to resume polling", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

// Close stops polling and releases connections.
func (a *App) Close(ctx context.Context) error {
	a.scheduler.StopAll()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.metrics != nil {
		return a.metrics.Stop(ctx)
	}
	return nil
}

// observer renders scheduler events and folds finished records into the
// history view.
type observer struct {
	out     *render.Renderer
	history *history.Loader
}

func (o *observer) OnPollUpdate(s prediction.State) { o.out.OnPollUpdate(s) }

func (o *observer) OnError(c prediction.Classified) { o.out.OnError(c) }

func (o *observer) OnTerminal(out prediction.Outcome) {
	o.out.OnTerminal(out)
	if o.history != nil && out.Prediction != nil && out.Prediction.Status.IsTerminal() {
		o.history.Update(*out.Prediction)
	}
}
