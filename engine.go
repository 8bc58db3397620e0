package gateAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/gateAuth/internal/csrf"
	"github.com/MrEthical07/gateAuth/internal/rate"
	"github.com/MrEthical07/gateAuth/jwt"
	"github.com/charmbracelet/log"
)

type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Engine is the authentication gate. It is immutable after Build and safe
// for concurrent use.
type Engine struct {
	config      Config
	credentials *CredentialStore
	validator   *CredentialValidator
	sessions    *SessionManager
	pinger      pinger
	tokens      *jwt.Manager
	csrf        *csrf.Guard
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	logger      *log.Logger
	now         func() time.Time

	generatedSecret bool
}

// Close flushes queued audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped, either on a full
// buffer or because the request ended while waiting for room.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByEvent breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByEvent() map[string]uint64 {
	var d *auditDispatcher
	if e != nil {
		d = e.audit
	}
	return d.DroppedByEvent()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the validated configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Sessions exposes the session manager for callers that hold a session id
// directly, such as operator tooling.
func (e *Engine) Sessions() *SessionManager {
	return e.sessions
}

// Login checks credentials and, on success, persists a session and returns
// the signed cookie value. It returns ErrLoginRateLimited,
// ErrInvalidCredentials or ErrSessionCreationFailed on failure.
func (e *Engine) Login(ctx context.Context, username, plain string) (*LoginResult, error) {
	if e == nil || e.validator == nil {
		return nil, ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
				return nil, ErrLoginRateLimited
			}
			// fail open: throttling is best effort
			e.logger.Warn("login throttle unavailable", "err", err)
		}
	}

	result := e.validator.Validate(username, plain)
	if !result.Authenticated {
		e.metricInc(MetricLoginFailure)
		e.recordFailedLogin(ctx, username, ip)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	p, err := e.sessions.CreateSession(ctx, result.Identity)
	if err != nil {
		e.emitAudit(ctx, auditEventSessionCreateFailed, false, result.Identity, "", err, nil)
		return nil, err
	}

	cookie, expires, err := e.tokens.Issue(p.sessionID)
	if err != nil {
		e.logger.Error("signing session cookie failed", "err", err)
		_ = e.sessions.DestroySession(ctx, p.sessionID)
		e.emitAudit(ctx, auditEventSessionCreateFailed, false, result.Identity, "", ErrSessionCreationFailed, nil)
		return nil, ErrSessionCreationFailed
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, username); err != nil {
			e.logger.Warn("login throttle reset failed", "err", err)
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, result.Identity, p.sessionID, nil, nil)
	e.logger.Debug("login succeeded", "identity", result.Identity)

	return &LoginResult{
		Principal: p,
		Auth:      result,
		Cookie:    cookie,
		ExpiresAt: expires,
	}, nil
}

func (e *Engine) recordFailedLogin(ctx context.Context, username, ip string) {
	if e.rateLimiter == nil {
		return
	}
	err := e.rateLimiter.IncrementLogin(ctx, username, ip)
	if err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.logger.Warn("login throttle unavailable", "err", err)
	}
}

// Logout destroys the session behind cookieValue. An unverifiable cookie is
// not an error: there is nothing to destroy. Store failures are returned
// for logging; callers must clear the cookie either way.
func (e *Engine) Logout(ctx context.Context, cookieValue string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if cookieValue == "" {
		return nil
	}

	claims, err := e.tokens.Parse(cookieValue)
	if err != nil {
		return nil
	}

	if err := e.sessions.DestroySession(ctx, claims.SID); err != nil {
		e.metricInc(MetricLogoutFailure)
		e.emitAudit(ctx, auditEventLogoutFailed, false, "", claims.SID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, "", claims.SID, nil, nil)
	return nil
}

// NewCSRFSecret returns a fresh per-visitor CSRF secret.
func (e *Engine) NewCSRFSecret() string {
	return e.csrf.NewSecret()
}

// IssueCSRFToken mints a token for secret. Each call returns a different
// token; all of them verify against secret.
func (e *Engine) IssueCSRFToken(secret string) (string, error) {
	return e.csrf.IssueToken(secret)
}

// VerifyCSRFToken checks token against secret and records rejections.
func (e *Engine) VerifyCSRFToken(ctx context.Context, secret, token string) bool {
	if e.csrf.Verify(secret, token) {
		return true
	}
	e.metricInc(MetricCSRFRejected)
	e.emitAudit(ctx, auditEventCSRFRejected, false, "", "", ErrCSRFMismatch, nil)
	return false
}

// Health pings the session backend. Stores without a Ping method are
// reported reachable.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.pinger == nil {
		return HealthStatus{RedisReachable: true}
	}
	latency, err := e.pinger.Ping(ctx)
	if err != nil {
		e.logger.Warn("session store ping failed", "err", err)
		return HealthStatus{RedisReachable: false, RedisLatency: latency}
	}
	return HealthStatus{RedisReachable: true, RedisLatency: latency}
}
