package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "cs"), rdb, mr
}

func TestSaveAndFindByJTI(t *testing.T) {
	store, _, _ := newStoreTest(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour)
	if err := store.Save(ctx, "u-1", "ref_a", "$argon2id$hash-a", expiresAt); err != nil {
		t.Fatalf("save: %v", err)
	}

	sess, err := store.FindByJTI(ctx, "ref_a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sess.UserID != "u-1" || sess.JTI != "ref_a" || sess.RefreshHash != "$argon2id$hash-a" {
		t.Fatalf("session mismatch: %+v", sess)
	}
	if sess.ExpiresAt != expiresAt.Unix() {
		t.Fatalf("expiry mismatch: %d vs %d", sess.ExpiresAt, expiresAt.Unix())
	}
}

func TestFindByJTIMissing(t *testing.T) {
	store, _, _ := newStoreTest(t)

	_, err := store.FindByJTI(context.Background(), "ref_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveReplacesPreviousSession(t *testing.T) {
	store, _, _ := newStoreTest(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	if err := store.Save(ctx, "u-1", "ref_old", "hash-old", expiresAt); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.Save(ctx, "u-1", "ref_new", "hash-new", expiresAt); err != nil {
		t.Fatalf("save new: %v", err)
	}

	// The replaced session is gone, not just unindexed.
	if _, err := store.FindByJTI(ctx, "ref_old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old session deleted, got %v", err)
	}

	active, err := store.ListActive(ctx, "u-1")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].JTI != "ref_new" {
		t.Fatalf("expected single new session, got %+v", active)
	}
}

func TestSaveRejectsPastExpiry(t *testing.T) {
	store, _, _ := newStoreTest(t)

	err := store.Save(context.Background(), "u-1", "ref_a", "hash", time.Now().Add(-time.Minute))
	if !errors.Is(err, ErrExpiryInPast) {
		t.Fatalf("expected ErrExpiryInPast, got %v", err)
	}
}

func TestDeleteByJTIIdempotent(t *testing.T) {
	store, rdb, _ := newStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "ref_a", "hash", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.DeleteByJTI(ctx, "ref_a"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.DeleteByJTI(ctx, "ref_a"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	// The user index is cleared with the session.
	if err := rdb.Get(ctx, store.userKey("u-1")).Err(); !errors.Is(err, redis.Nil) {
		t.Fatalf("user index not cleared: %v", err)
	}
}

func TestDeleteByJTIKeepsNewerSession(t *testing.T) {
	store, _, _ := newStoreTest(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	if err := store.Save(ctx, "u-1", "ref_old", "hash-old", expiresAt); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.Save(ctx, "u-1", "ref_new", "hash-new", expiresAt); err != nil {
		t.Fatalf("save new: %v", err)
	}

	// Deleting the replaced jti must not drop the index entry for the
	// current session.
	if err := store.DeleteByJTI(ctx, "ref_old"); err != nil {
		t.Fatalf("delete old: %v", err)
	}

	active, err := store.ListActive(ctx, "u-1")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].JTI != "ref_new" {
		t.Fatalf("newer session lost: %+v", active)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _, _ := newStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, "u-1", "ref_a", "hash", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	jtis, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(jtis) != 1 || jtis[0] != "ref_a" {
		t.Fatalf("unexpected deleted jtis: %v", jtis)
	}

	if _, err := store.FindByJTI(ctx, "ref_a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session survived delete all: %v", err)
	}

	// No sessions is a successful no-op.
	jtis, err = store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("delete all empty: %v", err)
	}
	if len(jtis) != 0 {
		t.Fatalf("expected no jtis, got %v", jtis)
	}
}

func TestListActiveFiltersExpired(t *testing.T) {
	store, rdb, _ := newStoreTest(t)
	ctx := context.Background()

	// Plant a row whose logical expiry has passed while its Redis TTL has
	// not; it must read as absent.
	data, err := Encode(&Session{
		UserID:      "u-1",
		JTI:         "ref_stale",
		RefreshHash: "hash",
		CreatedAt:   time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt:   time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := rdb.Set(ctx, store.jtiKey("ref_stale"), data, time.Hour).Err(); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if err := rdb.Set(ctx, store.userKey("u-1"), "ref_stale", time.Hour).Err(); err != nil {
		t.Fatalf("set index: %v", err)
	}

	active, err := store.ListActive(ctx, "u-1")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expired session listed as active: %+v", active)
	}

	// FindByJTI still returns the raw row so callers can report expiry.
	sess, err := store.FindByJTI(ctx, "ref_stale")
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if !sess.Expired(time.Now()) {
		t.Fatal("stale session not reported expired")
	}
}

func TestStoreUnavailableWrapped(t *testing.T) {
	store, _, mr := newStoreTest(t)
	mr.Close()

	if _, err := store.FindByJTI(context.Background(), "ref_a"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Save(context.Background(), "u-1", "ref_a", "hash", time.Now().Add(time.Hour)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestEncodeDecodeSession(t *testing.T) {
	now := time.Now()
	in := &Session{
		UserID:      "u-1",
		JTI:         "ref_0b176c3a",
		RefreshHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(time.Hour).Unix(),
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != sessionFormatVersionCurrent {
		t.Fatalf("wrong version byte: %d", data[0])
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := Decode([]byte{99}); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := Decode([]byte{sessionFormatVersionCurrent, 5, 'u'}); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Unix()}

	// A session is live only while its expiry is strictly in the future.
	if !s.Expired(now) {
		t.Fatal("session still live at its expiry instant")
	}
	if !s.Expired(now.Add(2 * time.Second)) {
		t.Fatal("session not expired past its boundary")
	}
	if s.Expired(now.Add(-2 * time.Second)) {
		t.Fatal("session expired before its boundary")
	}
}
