package gateAuth

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newSessionIDString(t *testing.T) string {
	t.Helper()
	sid, err := internal.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	return sid.String()
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func bcryptHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	out, err := h.Hash(plain)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.Secret = testSecret
	cfg.Metrics.Enabled = true
	return cfg
}

type engineOpts struct {
	cfg   Config
	users []UserRecord
	clock *testClock
	sink  AuditSink
	store SessionStore
}

func buildTestEngine(t *testing.T, rdb *redis.Client, opts engineOpts) *Engine {
	t.Helper()

	if opts.users == nil {
		opts.users = []UserRecord{{Username: "admin", Secret: "secret123"}}
	}
	if opts.clock == nil {
		opts.clock = newTestClock()
	}
	if opts.cfg.Session.TTL == 0 {
		opts.cfg = testConfig()
	}

	b := New().
		WithConfig(opts.cfg).
		WithUsers(opts.users).
		WithRedis(rdb).
		WithClock(opts.clock.Now).
		WithLogger(quietLogger())
	if opts.sink != nil {
		b.WithAuditSink(opts.sink)
	}
	if opts.store != nil {
		b.WithSessionStore(opts.store)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// failingStore fails every call with a transport error.
type failingStore struct{}

func (failingStore) Save(context.Context, *session.Session, time.Duration) error {
	return session.ErrRedisUnavailable
}

func (failingStore) Get(context.Context, string) (*session.Session, error) {
	return nil, session.ErrRedisUnavailable
}

func (failingStore) Delete(context.Context, string) error {
	return session.ErrRedisUnavailable
}

// countingStore wraps a SessionStore and counts Save and Get calls.
type countingStore struct {
	SessionStore
	mu    sync.Mutex
	saves int
	gets  int
}

func (s *countingStore) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.SessionStore.Get(ctx, sessionID)
}

func (s *countingStore) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *countingStore) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.SessionStore.Save(ctx, sess, ttl)
}

func (s *countingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
