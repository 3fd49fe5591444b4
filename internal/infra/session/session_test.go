package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewFileStore(path)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load on empty store = %v, want ErrNoSession", err)
	}

	saved := &Session{
		Token:     "tok-123",
		TokenType: "bearer",
		Username:  "alice",
		SavedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("session file perm = %o, want 600", perm)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Token != "tok-123" || got.Username != "alice" {
		t.Errorf("Load = %+v, want token tok-123 for alice", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load after Clear = %v, want ErrNoSession", err)
	}
	// Clearing twice is not an error.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("second Clear failed: %v", err)
	}
}

func TestTokenFunc(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tokenFn := TokenFunc(store)

	token, err := tokenFn(ctx)
	if err != nil || token != "" {
		t.Fatalf("empty store: token=%q err=%v, want empty and nil", token, err)
	}

	_ = store.Save(ctx, &Session{Token: "abc"})
	token, err = tokenFn(ctx)
	if err != nil || token != "abc" {
		t.Fatalf("token=%q err=%v, want abc", token, err)
	}
}
