package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/api"
	"github.com/MrEthical07/gateAuth/config"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const defaultAddr = ":4040"

var (
	listenAddr  string
	auditStdout bool
	trustProxy  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)

		file, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg, err := file.EngineConfig()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		rdb := redis.NewUniversalClient(file.RedisOptions())
		defer rdb.Close()

		builder := gateAuth.New().
			WithConfig(cfg).
			WithUsers(file.UserRecords()).
			WithRedis(rdb).
			WithLogger(logger.WithPrefix("gateAuth"))
		if cfg.Audit.Enabled && auditStdout {
			builder.WithAuditSink(gateAuth.NewJSONWriterSink(cmd.OutOrStdout()))
		}
		engine, err := builder.Build()
		if err != nil {
			return fmt.Errorf("failed to build engine: %w", err)
		}
		defer engine.Close()
		for _, w := range engine.SecurityReport().Warnings() {
			logger.Warn("security posture", "issue", w)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// startup never blocks on Redis
		go watchRedis(ctx, engine, logger.WithPrefix("redis"), 30*time.Second)

		h := api.NewHandler(engine, api.Options{
			Apps:   file.Apps,
			Logger: logger.WithPrefix("api"),
		})

		if !trustProxy {
			trustProxy = file.TrustProxy
		}
		r := newRouter(h, trustProxy)

		addr := listenAddr
		if addr == "" {
			addr = file.Addr
		}
		if addr == "" {
			addr = defaultAddr
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("listening", "addr", addr, "mount", cfg.MountPath, "users", len(file.Users), "trustProxy", trustProxy)

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// newRouter wraps the auth routes in the server middleware stack. Forwarded
// client addresses are honoured only with trustProxy.
func newRouter(h *api.Handler, trustProxy bool) http.Handler {
	r := chi.NewRouter()
	if trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Mount("/", h.Routes())
	return r
}

type healthChecker interface {
	Health(ctx context.Context) gateAuth.HealthStatus
}

// watchRedis pings the session store until ctx ends. It logs each change
// between reachable and unreachable and retries with exponential backoff
// while the store is down.
func watchRedis(ctx context.Context, hc healthChecker, logger *log.Logger, interval time.Duration) {
	const (
		minBackoff = 500 * time.Millisecond
		maxBackoff = 30 * time.Second
	)

	backoff := minBackoff
	known, up := false, false

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status := hc.Health(pingCtx)
		cancel()

		wait := interval
		switch {
		case status.RedisReachable && (!known || !up):
			logger.Info("session store connected", "latency", status.RedisLatency)
			backoff = minBackoff
		case !status.RedisReachable && (!known || up):
			logger.Error("session store unreachable, logins will fail until it returns")
		}
		if !status.RedisReachable {
			wait = backoff
			backoff = min(backoff*2, maxBackoff)
		}
		known, up = true, status.RedisReachable

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "Listen address (overrides the config file, default "+defaultAddr+")")
	serveCmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Take the client IP from X-Forwarded-For/X-Real-IP (only behind a proxy that sets them)")
	serveCmd.Flags().BoolVar(&auditStdout, "audit-stdout", true, "Write audit events as JSON lines to stdout when audit is enabled")
}
