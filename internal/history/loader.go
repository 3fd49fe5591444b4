// Package history loads the user's predictions and keeps a merged view of
// them that never moves a finished prediction back to pending.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/prediction"
)

// API is the part of the service client the loader needs.
type API interface {
	GetHistory(ctx context.Context) (*domain.History, error)
	GetPrediction(ctx context.Context, id string) (*domain.Prediction, error)
}

// Poller starts status polling for pending records.
type Poller interface {
	Start(ctx context.Context, p *domain.Prediction) (*prediction.Handle, error)
	Polling(id string) bool
}

// Observer receives every published history view.
type Observer interface {
	OnHistory(View)
}

// View is a history snapshot, newest first.
type View struct {
	Predictions []domain.Prediction
	Next        domain.NextAction
}

// Empty reports whether the user has no predictions yet.
func (v View) Empty() bool { return len(v.Predictions) == 0 }

// Pending returns the records that have not finished.
func (v View) Pending() []domain.Prediction {
	var out []domain.Prediction
	for _, p := range v.Predictions {
		if !p.Status.IsTerminal() {
			out = append(out, p)
		}
	}
	return out
}

// Loader fetches and merges history.
type Loader struct {
	api      API
	poller   Poller
	observer Observer

	mu        sync.Mutex
	records   map[string]domain.Prediction
	loaded    bool
	seq       uint64
	published uint64
}

// NewLoader creates a Loader. poller and observer may be nil.
func NewLoader(api API, poller Poller, observer Observer) *Loader {
	return &Loader{
		api:      api,
		poller:   poller,
		observer: observer,
		records:  make(map[string]domain.Prediction),
	}
}

// Load fetches the history, merges it into the cached view and publishes
// the result. The server decides which records exist; a record the loader
// has already seen finished keeps its terminal copy even if the server
// returns a stale pending one.
func (l *Loader) Load(ctx context.Context) (View, error) {
	seq := l.next()

	h, err := l.api.GetHistory(ctx)
	if err != nil {
		return View{}, fmt.Errorf("load history: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if seq < l.published {
		slog.Debug("dropping stale history", "seq", seq, "published", l.published)
		return l.viewLocked(), nil
	}

	fresh := make(map[string]domain.Prediction, len(h.Predictions))
	for _, p := range h.Predictions {
		if p.ID == "" {
			continue
		}
		fresh[p.ID] = merge(l.records[p.ID], p)
	}
	l.records = fresh
	l.loaded = true
	l.published = seq

	v := l.viewLocked()
	slog.Debug("history loaded", "count", len(v.Predictions), "pending", len(v.Pending()))
	if l.observer != nil {
		l.observer.OnHistory(v)
	}
	return v, nil
}

// Update merges a single record, typically a poll result, into the view.
// It does nothing before the first Load.
func (l *Loader) Update(p domain.Prediction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded || p.ID == "" {
		return
	}
	l.records[p.ID] = merge(l.records[p.ID], p)
	if l.observer != nil {
		l.observer.OnHistory(l.viewLocked())
	}
}

// View returns the current merged view without fetching.
func (l *Loader) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

// CheckStatus fetches one prediction, merges it and reloads the history.
func (l *Loader) CheckStatus(ctx context.Context, id string) (*domain.Prediction, error) {
	p, err := l.api.GetPrediction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check status %s: %w", id, err)
	}
	l.Update(*p)
	if _, err := l.Load(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// Resume starts polling every pending record that is not already being
// polled, and returns the handles of the loops it started.
func (l *Loader) Resume(ctx context.Context) ([]*prediction.Handle, error) {
	if l.poller == nil {
		return nil, nil
	}

	var handles []*prediction.Handle
	for _, p := range l.View().Pending() {
		if l.poller.Polling(p.ID) {
			continue
		}
		h, err := l.poller.Start(ctx, &p)
		if err != nil {
			return handles, fmt.Errorf("resume %s: %w", p.ID, err)
		}
		slog.Info("resumed polling", "prediction_id", p.ID)
		handles = append(handles, h)
	}
	return handles, nil
}

func (l *Loader) next() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return l.seq
}

func (l *Loader) viewLocked() View {
	v := View{Predictions: make([]domain.Prediction, 0, len(l.records))}
	for _, p := range l.records {
		v.Predictions = append(v.Predictions, p)
	}
	slices.SortStableFunc(v.Predictions, newestFirst)
	if v.Empty() {
		v.Next = domain.ActionNewPrediction
	}
	return v
}

func newestFirst(a, b domain.Prediction) int {
	switch {
	case a.CreatedAt.After(b.CreatedAt.Time):
		return -1
	case a.CreatedAt.Before(b.CreatedAt.Time):
		return 1
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	default:
		return 0
	}
}

// merge keeps old when it is terminal and incoming is not.
func merge(old, incoming domain.Prediction) domain.Prediction {
	if old.ID != "" && old.Status.IsTerminal() && !incoming.Status.IsTerminal() {
		return old
	}
	return incoming
}
