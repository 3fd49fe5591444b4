package session

import (
	"context"
	"sync"
)

type MemoryStore struct {
	sess *Session
	mu   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWithToken returns a store already holding token.
func NewMemoryStoreWithToken(token string) *MemoryStore {
	return &MemoryStore{sess: &Session{Token: token, TokenType: "bearer"}}
}

func (s *MemoryStore) Load(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return nil, ErrNoSession
	}
	cp := *s.sess
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sess = &cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
	return nil
}
