package gateAuth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/MrEthical07/gateAuth/internal/csrf"
	"github.com/MrEthical07/gateAuth/internal/rate"
	"github.com/MrEthical07/gateAuth/jwt"
	"github.com/MrEthical07/gateAuth/password"
	"github.com/MrEthical07/gateAuth/session"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  SessionStore

	users     []UserRecord
	auditSink AuditSink
	logger    *log.Logger
	clock     func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUsers sets the configured user list. Records are copied at Build.
func (b *Builder) WithUsers(users []UserRecord) *Builder {
	b.users = users
	return b
}

// WithRedis backs sessions and login throttling with client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the Redis session store. Login throttling still
// needs WithRedis unless it is disabled.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for session expiry and cookie signing.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil && b.store == nil {
		return nil, errors.New("redis client or session store required")
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttle requires redis client")
	}
	if len(b.users) == 0 {
		return nil, errors.New("at least one user must be configured")
	}

	logger := b.logger
	if logger == nil {
		logger = defaultLogger()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- CREDENTIALS --------
	credentials := NewCredentialStore(b.users)
	lintCredentials(logger, credentials, cfg.Credentials.UseEncryptedPasswords)

	// -------- SESSION SECRET --------
	secret := cfg.Session.Secret
	if secret == "" {
		generated, err := internal.NewCookieSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Warn("no session secret configured, generated a random one; sessions will not survive a restart")
	}

	previous := make([][]byte, 0, len(cfg.Session.PreviousSecrets))
	for _, p := range cfg.Session.PreviousSecrets {
		previous = append(previous, []byte(p))
	}
	tokens, err := jwt.NewManager(jwt.Config{
		Secret:          []byte(secret),
		PreviousSecrets: previous,
		TTL:             cfg.Session.TTL,
		Issuer:          cfg.Session.Issuer,
		Now:             clock,
	})
	if err != nil {
		return nil, err
	}

	guard, err := csrf.NewGuard(deriveKey(secret, "gateauth csrf"))
	if err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	metrics := NewMetrics(cfg.Metrics)

	store := b.store
	var ping pinger
	if store == nil {
		enc, err := session.ParseEncoding(cfg.Session.SessionEncoding)
		if err != nil {
			return nil, err
		}
		redisStore := session.NewStore(b.redis, cfg.Session.RedisPrefix, enc)
		store = redisStore
		ping = redisStore
	} else if p, ok := store.(pinger); ok {
		ping = p
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		credentials: credentials,
		validator:   NewCredentialValidator(credentials, cfg.Credentials.UseEncryptedPasswords),
		sessions:    newSessionManager(store, cfg.Session.TTL, clock, logger, metrics),
		pinger:      ping,
		tokens:      tokens,
		csrf:        guard,
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:     metrics,
		logger:      logger,
		now:         clock,

		generatedSecret: cfg.Session.Secret == "",
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
			Prefix:                cfg.Security.RateLimitPrefix,
		})
	}

	b.built = true

	return engine, nil
}

// deriveKey separates the CSRF key from the cookie signing key.
func deriveKey(secret, label string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(label))
	return h.Sum(nil)
}

// lintCredentials warns about records that can never log in under the
// configured comparison mode. It never logs secret values.
func lintCredentials(logger *log.Logger, store *CredentialStore, hashed bool) {
	seen := make(map[string]struct{}, store.Len())
	for i := range store.records {
		r := &store.records[i]
		if r.Username == "" {
			logger.Warn("user record has an empty username and can never log in", "index", i)
			continue
		}
		if _, dup := seen[r.Username]; dup {
			logger.Warn("duplicate username, first configured record wins", "username", r.Username)
		}
		seen[r.Username] = struct{}{}

		_, recognised := password.Identify(r.Secret)
		switch {
		case hashed && !recognised:
			logger.Warn("user secret is not a bcrypt or argon2id hash", "username", r.Username)
		case !hashed && recognised:
			logger.Warn("user secret looks hashed but encrypted passwords are disabled", "username", r.Username)
		}
	}
}
