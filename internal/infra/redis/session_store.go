package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/predictctl/internal/infra/session"
)

// SessionStore implements session.Store using Redis. Sessions are keyed
// by profile.
type SessionStore struct {
	rdb     *redis.Client
	profile string
	ttl     time.Duration
}

// NewSessionStore creates a new Redis-backed session store. A zero ttl
// keeps the session until it is cleared.
func NewSessionStore(client *Client, profile string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		rdb:     client.rdb,
		profile: profile,
		ttl:     ttl,
	}
}

func sessionKey(profile string) string {
	return fmt.Sprintf("predictctl:session:%s", profile)
}

// Load returns the stored session or session.ErrNoSession.
func (s *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(s.profile)).Bytes()
	if err == redis.Nil {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.Token == "" {
		return nil, session.ErrNoSession
	}
	return &sess, nil
}

// Save stores the session, replacing any previous one.
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(s.profile), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// Clear deletes the session.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, sessionKey(s.profile)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
