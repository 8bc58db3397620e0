//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const integrationSecret = "integration-secret-0123456789abcdef"

// redisMode describes which Redis backend a suite run is using.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns the Redis backends to test against.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				mr := miniredis.RunT(t)
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				requirePing(t, rdb)
				// Flush the test DB to avoid state leaking between runs.
				rdb.FlushDB(context.Background())
				t.Cleanup(func() { rdb.FlushDB(context.Background()); _ = rdb.Close() })
				return rdb
			},
		})
	}

	// Sentinel mode: when REDIS_SENTINEL_ADDRS and REDIS_SENTINEL_MASTER are set.
	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				})
				requirePing(t, rdb)
				rdb.FlushDB(context.Background())
				t.Cleanup(func() { rdb.FlushDB(context.Background()); _ = rdb.Close() })
				return rdb
			},
		})
	}

	return modes
}

func requirePing(t *testing.T, rdb redis.UniversalClient) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("cannot connect to Redis: %v", err)
	}
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// clock is a settable time source shared by engines in one test.
type clock struct{ now time.Time }

func newClock() *clock { return &clock{now: time.Unix(1700000000, 0)} }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var integrationUsers = []gateAuth.UserRecord{
	{Username: "admin", Secret: "secret123"},
	{Username: "viewer", Secret: "viewer-pass", AllowedApps: []string{"app1"}, ReadOnly: true},
}

// newEngine builds an engine on rdb with a fixed secret so several engines
// can share sessions, the way multiple dashboard replicas do.
func newEngine(t *testing.T, rdb redis.UniversalClient, c *clock, users []gateAuth.UserRecord, mutate func(*gateAuth.Config)) *gateAuth.Engine {
	t.Helper()

	cfg := gateAuth.DefaultConfig()
	cfg.Session.Secret = integrationSecret
	cfg.Security.RateLimitPrefix = "it-gl"
	cfg.Session.RedisPrefix = "it-gs"
	if mutate != nil {
		mutate(&cfg)
	}

	b := gateAuth.New().
		WithConfig(cfg).
		WithUsers(users).
		WithRedis(rdb).
		WithLogger(log.New(io.Discard))
	if c != nil {
		b = b.WithClock(c.Now)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
