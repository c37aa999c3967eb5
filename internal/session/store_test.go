package session

import (
	"context"
	"path/filepath"
	"testing"

	"parley/internal/chat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session before save, got %+v", sess)
	}

	saved := Session{
		Token: "tok-123",
		User:  chat.User{ID: "u1", Username: "alice", Email: "a@x.com"},
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sess, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess == nil || sess.Token != "tok-123" || sess.User.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	sess, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after clear: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session after clear, got %+v", sess)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := Session{Token: "tok-1", User: chat.User{ID: "u1", Username: "alice", Email: "a@x.com"}}
	second := Session{Token: "tok-2", User: chat.User{ID: "u2", Username: "bob", Email: "b@x.com"}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	sess, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.Token != "tok-2" || sess.User.Username != "bob" {
		t.Fatalf("expected the replacement session, got %+v", sess)
	}
}

func TestSaveRejectsIncompleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, Session{User: chat.User{ID: "u1", Username: "alice"}}); err == nil {
		t.Fatalf("expected error saving session without token")
	}
	if err := store.Save(ctx, Session{Token: "tok"}); err == nil {
		t.Fatalf("expected error saving session without user")
	}
}
