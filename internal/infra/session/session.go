// Package session keeps the bearer token between CLI invocations.
//
// This package contains:
//   - Store interface: load/save/clear of the current Session
//   - FileStore: YAML file under the user config directory
//   - MemoryStore: process-local store used by tests and one-shot runs
//
// A Redis-backed Store lives in internal/infra/redis.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned by Load when nothing has been saved yet.
var ErrNoSession = errors.New("no session")

// Session is the persisted login state.
type Session struct {
	Token     string    `yaml:"token"      json:"token"`
	TokenType string    `yaml:"token_type" json:"token_type"`
	Username  string    `yaml:"username"   json:"username"`
	SavedAt   time.Time `yaml:"saved_at"   json:"saved_at"`
}

// Store persists a single Session.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// TokenFunc adapts a Store to the token source the API client expects.
// A missing session yields an empty token, which the client reports as
// an authentication failure before any request is sent.
func TokenFunc(store Store) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		s, err := store.Load(ctx)
		if errors.Is(err, ErrNoSession) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return s.Token, nil
	}
}
