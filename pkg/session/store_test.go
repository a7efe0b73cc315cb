package session

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/privata-ai/privata-oss/pkg/detect"
)

func newTestStore(ttl time.Duration) *Store {
	return NewStore(Config{TTL: ttl}, zerolog.Nop())
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(0)

	sess, err := store.Create("acme")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a session ID")
	}

	got, err := store.Get(sess.ID, "acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TenantID != "acme" {
		t.Fatalf("unexpected tenant %q", got.TenantID)
	}
}

func TestStore_RejectsEmptyTenant(t *testing.T) {
	if _, err := newTestStore(0).Create(""); err == nil {
		t.Fatal("expected error for empty tenant")
	}
}

func TestStore_UnknownSession(t *testing.T) {
	_, err := newTestStore(0).Get("nope", "acme")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EnforcesOwnership(t *testing.T) {
	store := newTestStore(0)
	sess, _ := store.Create("acme")

	if _, err := store.Get(sess.ID, "globex"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := store.SnapshotEntities(sess.ID, "globex"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("snapshot: expected ErrAccessDenied, got %v", err)
	}
}

func TestStore_EntityMapPersistsAcrossCalls(t *testing.T) {
	store := newTestStore(0)
	sess, _ := store.Create("acme")

	err := store.ExtendEntities(sess.ID, "acme", []detect.Finding{
		{Category: detect.CategoryEmail, Value: "jane@firm.com"},
	})
	if err != nil {
		t.Fatalf("ExtendEntities: %v", err)
	}
	err = store.ExtendEntities(sess.ID, "acme", []detect.Finding{
		{Category: detect.CategoryEmail, Value: "bob@firm.com"},
	})
	if err != nil {
		t.Fatalf("ExtendEntities: %v", err)
	}

	entities, err := store.SnapshotEntities(sess.ID, "acme")
	if err != nil {
		t.Fatalf("SnapshotEntities: %v", err)
	}
	if entities["EMAIL_1"].OriginalValue != "jane@firm.com" {
		t.Fatalf("unexpected EMAIL_1: %+v", entities["EMAIL_1"])
	}
	if entities["EMAIL_2"].OriginalValue != "bob@firm.com" {
		t.Fatalf("counters must continue across calls: %+v", entities["EMAIL_2"])
	}
}

func TestStore_CloseRemovesSession(t *testing.T) {
	store := newTestStore(0)
	sess, _ := store.Create("acme")

	if err := store.Close(sess.ID, "acme"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := store.Get(sess.ID, "acme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after close, got %v", err)
	}
}

func TestStore_SweepDropsIdleSessions(t *testing.T) {
	store := newTestStore(time.Nanosecond)
	sess, _ := store.Create("acme")

	time.Sleep(2 * time.Millisecond)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected one expired session, got %d", removed)
	}
	if _, err := store.Get(sess.ID, "acme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after sweep, got %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty store, got %d", store.Count())
	}
}
