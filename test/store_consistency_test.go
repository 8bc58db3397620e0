//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStoreConsistencySessionsSharedAcrossReplicas(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := newClock()
	a := newEngine(t, rdb, c, integrationUsers, nil)
	b := newEngine(t, rdb, c, integrationUsers, nil)

	res, err := a.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("login on replica a: %v", err)
	}
	if _, _, ok := b.Authenticate(ctx, res.Cookie); !ok {
		t.Fatal("expected replica b to restore a session created on replica a")
	}

	if err := b.Logout(ctx, res.Cookie); err != nil {
		t.Fatalf("logout on replica b: %v", err)
	}
	if _, _, ok := a.Authenticate(ctx, res.Cookie); ok {
		t.Fatal("expected logout on replica b to end the session on replica a")
	}
}

func TestStoreConsistencyRemovedUserLosesSession(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	before := newEngine(t, rdb, nil, integrationUsers, nil)
	res, err := before.Login(ctx, "viewer", "viewer-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Restart with viewer removed from the user list.
	after := newEngine(t, rdb, nil, integrationUsers[:1], nil)
	if _, _, ok := after.Authenticate(ctx, res.Cookie); ok {
		t.Fatal("expected session of a removed user to be anonymous")
	}
}

func TestStoreConsistencyExpiryIsAbsolute(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := newClock()
	engine := newEngine(t, rdb, c, integrationUsers, func(cfg *gateAuth.Config) {
		cfg.Session.TTL = time.Minute
	})

	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Activity does not extend the lifetime.
	for i := 0; i < 5; i++ {
		c.Advance(10 * time.Second)
		if _, _, ok := engine.Authenticate(ctx, res.Cookie); !ok {
			t.Fatalf("expected session alive after %v", time.Duration(i+1)*10*time.Second)
		}
	}
	c.Advance(11 * time.Second)
	if _, _, ok := engine.Authenticate(ctx, res.Cookie); ok {
		t.Fatal("expected session to expire a minute after login despite activity")
	}
}

func TestStoreConsistencyIndexPrunesExpiredKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := session.NewStore(rdb, "it-prune", session.EncodingBinary)
	now := time.Now()
	short := &session.Session{SessionID: "short", Identity: "admin", CreatedAt: now.Unix(), ExpiresAt: now.Add(time.Minute).Unix()}
	long := &session.Session{SessionID: "long", Identity: "admin", CreatedAt: now.Unix(), ExpiresAt: now.Add(time.Hour).Unix()}
	if err := store.Save(ctx, short, time.Minute); err != nil {
		t.Fatalf("save short: %v", err)
	}
	if err := store.Save(ctx, long, time.Hour); err != nil {
		t.Fatalf("save long: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ids, err := store.ActiveSessionIDs(ctx, "admin")
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "long" {
		t.Fatalf("expected only the long session to remain, got %v", ids)
	}
	members, err := rdb.SMembers(ctx, "it-prune:u:admin").Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected pruned index, got %v", members)
	}
}

func TestStoreConsistencyDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := session.NewStore(rdb, "it-del", session.EncodingMsgpack)
	now := time.Now()
	sess := &session.Session{SessionID: "sid-delete", Identity: "admin", CreatedAt: now.Unix(), ExpiresAt: now.Add(time.Hour).Unix()}
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Delete(ctx, "sid-delete"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "sid-delete"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	ids, err := store.ActiveSessionIDs(ctx, "admin")
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty index, got %v", ids)
	}
}
