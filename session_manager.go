package gateAuth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/charmbracelet/log"
)

// SessionStore is the narrow contract the SessionManager needs from a
// shared key-value store. Get must return an error wrapping
// session.ErrNotFound for a missing id and one wrapping
// session.ErrRedisUnavailable (or any other error) for transport failures.
// Delete of a missing id must succeed.
type SessionStore interface {
	Save(ctx context.Context, sess *session.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionManager creates, restores and destroys login sessions. Sessions
// have a fixed lifetime from creation.
type SessionManager struct {
	store   SessionStore
	ttl     time.Duration
	now     func() time.Time
	logger  *log.Logger
	metrics *Metrics
}

// NewSessionManager returns a manager over store. A nil clock uses
// time.Now; a nil logger uses the package default.
func NewSessionManager(store SessionStore, ttl time.Duration, clock func() time.Time, logger *log.Logger) *SessionManager {
	return newSessionManager(store, ttl, clock, logger, nil)
}

func newSessionManager(store SessionStore, ttl time.Duration, clock func() time.Time, logger *log.Logger, metrics *Metrics) *SessionManager {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = defaultLogger()
	}
	return &SessionManager{
		store:   store,
		ttl:     ttl,
		now:     clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateSession persists a new session for identity. On failure no session
// exists and the caller must not issue a cookie.
func (m *SessionManager) CreateSession(ctx context.Context, identity string) (Principal, error) {
	if identity == "" {
		return Principal{}, errors.New("identity is required")
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		m.metrics.Inc(MetricSessionCreateFailed)
		return Principal{}, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	now := m.now()
	expires := now.Add(m.ttl)
	sess := &session.Session{
		SessionID: sid.String(),
		Identity:  identity,
		CreatedAt: now.Unix(),
		ExpiresAt: expires.Unix(),
	}

	if err := m.store.Save(ctx, sess, sess.TTL(now)); err != nil {
		m.metrics.Inc(MetricSessionCreateFailed)
		m.metrics.Inc(MetricSessionStoreUnavailable)
		m.logger.Warn("session store save failed", "err", err)
		return Principal{}, fmt.Errorf("%w: %w: %v", ErrSessionCreationFailed, ErrSessionStoreUnavailable, err)
	}

	m.metrics.Inc(MetricSessionCreated)
	return Principal{
		identity:  identity,
		sessionID: sess.SessionID,
		expiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// RestoreSession returns the Principal for sessionID. Malformed, missing,
// expired, undecodable and unreachable sessions all yield false; the caller
// treats the request as anonymous. Malformed ids never reach the store.
func (m *SessionManager) RestoreSession(ctx context.Context, sessionID string) (Principal, bool) {
	if sessionID == "" {
		return Principal{}, false
	}
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		m.metrics.Inc(MetricSessionRestoreMiss)
		return Principal{}, false
	}

	start := time.Now()
	sess, err := m.store.Get(ctx, sessionID)
	m.metrics.Observe(MetricRestoreLatency, time.Since(start))

	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			m.metrics.Inc(MetricSessionRestoreMiss)
		case errors.Is(err, session.ErrInvalidEncoding):
			m.metrics.Inc(MetricSessionRestoreMiss)
			m.logger.Warn("discarding undecodable session", "err", err)
		default:
			m.metrics.Inc(MetricSessionStoreUnavailable)
			m.logger.Warn("session store get failed, treating request as anonymous", "err", err)
		}
		return Principal{}, false
	}

	// The store may not have evicted yet.
	if sess.Expired(m.now()) {
		m.metrics.Inc(MetricSessionExpired)
		return Principal{}, false
	}

	m.metrics.Inc(MetricSessionRestored)
	return Principal{
		identity:  sess.Identity,
		sessionID: sessionID,
		expiresAt: time.Unix(sess.ExpiresAt, 0),
	}, true
}

// DestroySession deletes sessionID. Deleting a missing session succeeds.
// Failures are logged and returned wrapped in ErrSessionInvalidationFailed.
func (m *SessionManager) DestroySession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		m.metrics.Inc(MetricSessionStoreUnavailable)
		m.logger.Warn("session store delete failed", "err", err)
		return fmt.Errorf("%w: %w: %v", ErrSessionInvalidationFailed, ErrSessionStoreUnavailable, err)
	}
	return nil
}

// identityRevoker is implemented by stores that index sessions by identity.
type identityRevoker interface {
	DeleteAllForIdentity(ctx context.Context, identity string) (int, error)
}

// RevokeIdentity deletes every session of identity and returns how many were
// removed. The store must index sessions by identity, as session.Store does.
func (m *SessionManager) RevokeIdentity(ctx context.Context, identity string) (int, error) {
	if identity == "" {
		return 0, errors.New("identity is required")
	}
	r, ok := m.store.(identityRevoker)
	if !ok {
		return 0, ErrRevokeUnsupported
	}
	n, err := r.DeleteAllForIdentity(ctx, identity)
	if err != nil {
		m.metrics.Inc(MetricSessionStoreUnavailable)
		m.logger.Warn("session store revoke failed", "identity", identity, "err", err)
		return n, fmt.Errorf("%w: %w: %v", ErrSessionInvalidationFailed, ErrSessionStoreUnavailable, err)
	}
	m.logger.Info("revoked sessions", "identity", identity, "count", n)
	return n, nil
}

// TTL returns the fixed session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}
