package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var loadtestOpts struct {
	sessions    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
	encoding    string
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure session store restore and login churn latency",
	Long: `loadtest seeds sessions into Redis and then runs two phases: random
restores (the per-request path) and create+delete churn (login and logout).
With no --redis-addr and no REDIS_ADDR it runs against an in-process miniredis.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := loadtestOpts
		if o.sessions <= 0 || o.concurrency <= 0 || o.ops <= 0 {
			return errors.New("sessions, concurrency and ops must be > 0")
		}
		enc, err := session.ParseEncoding(o.encoding)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		addr := o.redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return fmt.Errorf("failed to start miniredis: %w", err)
			}
			defer mr.Close()
			addr = mr.Addr()
			fmt.Fprintf(out, "using miniredis at %s\n", addr)
		} else {
			fmt.Fprintf(out, "using redis at %s\n", addr)
		}

		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		defer client.Close()
		store := session.NewStore(client, o.prefix, enc)

		ctx := cmd.Context()
		ids, err := seedSessions(ctx, store, o.sessions, out)
		if err != nil {
			return err
		}

		restore := runPhase(o.ops, o.concurrency, func(r *rand.Rand, _ int) error {
			_, err := store.Get(ctx, ids[r.Intn(len(ids))])
			return err
		})
		churn := runPhase(o.ops, o.concurrency, func(r *rand.Rand, i int) error {
			sess, err := newLoadSession(fmt.Sprintf("user-%d", i%16))
			if err != nil {
				return err
			}
			if err := store.Save(ctx, sess, time.Hour); err != nil {
				return err
			}
			return store.Delete(ctx, sess.SessionID)
		})

		fmt.Fprintln(out, "---- results ----")
		printStats(out, "restore", restore)
		printStats(out, "churn", churn)
		return nil
	},
}

func seedSessions(ctx context.Context, store *session.Store, n int, out io.Writer) ([]string, error) {
	fmt.Fprintf(out, "seeding %d sessions...\n", n)
	start := time.Now()
	ids := make([]string, n)
	for i := range ids {
		sess, err := newLoadSession(fmt.Sprintf("user-%d", i%16))
		if err != nil {
			return nil, err
		}
		if err := store.Save(ctx, sess, 24*time.Hour); err != nil {
			return nil, fmt.Errorf("save failed: %w", err)
		}
		ids[i] = sess.SessionID
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return ids, nil
}

func newLoadSession(identity string) (*session.Session, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &session.Session{
		SessionID: sid.String(),
		Identity:  identity,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
	}, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func init() {
	rootCmd.AddCommand(loadtestCmd)
	f := loadtestCmd.Flags()
	f.IntVar(&loadtestOpts.sessions, "sessions", 100000, "Number of sessions to seed")
	f.IntVar(&loadtestOpts.concurrency, "concurrency", 256, "Number of concurrent workers")
	f.IntVar(&loadtestOpts.ops, "ops", 200000, "Operations per phase")
	f.StringVar(&loadtestOpts.redisAddr, "redis-addr", "", "Redis address; empty uses REDIS_ADDR or miniredis")
	f.StringVar(&loadtestOpts.prefix, "prefix", "gs-load", "Session key prefix")
	f.StringVar(&loadtestOpts.encoding, "encoding", "binary", "Session encoding: binary or msgpack")
}
