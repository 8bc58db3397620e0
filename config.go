package gateAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the full engine configuration. Build validates and copies it;
// later changes to the caller's value have no effect.
type Config struct {
	// MountPath prefixes every redirect target ("/" by default).
	MountPath   string
	Credentials CredentialsConfig
	Session     SessionConfig
	Cookie      CookieConfig
	Security    SecurityConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
CREDENTIALS CONFIG
====================================
*/

// CredentialsConfig selects how stored secrets are compared.
type CredentialsConfig struct {
	// UseEncryptedPasswords switches from plain equality to bcrypt/argon2id
	// verification. Plain mode is not constant-time.
	UseEncryptedPasswords bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime, storage and cookie signing.
type SessionConfig struct {
	// TTL is fixed at creation and never extended by activity.
	TTL             time.Duration
	RedisPrefix     string
	SessionEncoding string // "binary" (default) or "msgpack"
	// Secret signs session cookies. Empty means a random secret is generated
	// at Build, so sessions do not survive a restart.
	Secret string
	// PreviousSecrets still verify cookies after a secret rotation.
	PreviousSecrets []string
	Issuer          string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the cookies written by the HTTP layer.
type CookieConfig struct {
	Name      string
	CSRFName  string
	FlashName string
	Path      string
	Domain    string
	Secure    bool
	HTTPOnly  bool
	SameSite  http.SameSite
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds login throttling settings.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	RateLimitPrefix       string
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the restore latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when a field is not set.
func DefaultConfig() Config {
	return Config{
		MountPath: "/",
		Session: SessionConfig{
			TTL:             600 * time.Second,
			RedisPrefix:     "gs",
			SessionEncoding: "binary",
			Issuer:          "gateauth",
		},
		Cookie: CookieConfig{
			Name:      "gateauth.sid",
			CSRFName:  "_csrf",
			FlashName: "gateauth.flash",
			Path:      "/",
			Secure:    false,
			HTTPOnly:  false,
			SameSite:  http.SameSiteLaxMode,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			RateLimitPrefix:       "gl",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.MountPath = normalizeMountPath(cfg.MountPath)
	if cfg.Session.PreviousSecrets != nil {
		out.Session.PreviousSecrets = append([]string(nil), cfg.Session.PreviousSecrets...)
	}
	return out
}

// normalizeMountPath returns p with exactly one leading and one trailing slash.
func normalizeMountPath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.MountPath, "/") {
		return errors.New("MountPath must start with '/'")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.TTL < time.Second {
		return errors.New("Session TTL must be at least one second")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.SessionEncoding != "binary" && c.Session.SessionEncoding != "msgpack" {
		return errors.New("SessionEncoding must be 'binary' or 'msgpack'")
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < minSecretLength {
		return errors.New("Session Secret must be at least 32 characters")
	}
	for _, prev := range c.Session.PreviousSecrets {
		if len(prev) < minSecretLength {
			return errors.New("Session PreviousSecrets entries must be at least 32 characters")
		}
	}
	if len(c.Session.PreviousSecrets) > 0 && c.Session.Secret == "" {
		return errors.New("Session PreviousSecrets require an explicit Secret")
	}

	// Cookie
	if !validCookieName(c.Cookie.Name) {
		return errors.New("Cookie Name is not a valid cookie token")
	}
	if !validCookieName(c.Cookie.CSRFName) {
		return errors.New("Cookie CSRFName is not a valid cookie token")
	}
	if !validCookieName(c.Cookie.FlashName) {
		return errors.New("Cookie FlashName is not a valid cookie token")
	}
	if c.Cookie.Name == c.Cookie.CSRFName || c.Cookie.Name == c.Cookie.FlashName || c.Cookie.CSRFName == c.Cookie.FlashName {
		return errors.New("Cookie names must be distinct")
	}
	if !strings.HasPrefix(c.Cookie.Path, "/") {
		return errors.New("Cookie Path must start with '/'")
	}
	switch c.Cookie.SameSite {
	case http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode:
	case http.SameSiteNoneMode:
		if !c.Cookie.Secure {
			return errors.New("Cookie SameSite=None requires Secure")
		}
	default:
		return errors.New("Cookie SameSite is invalid")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
		if c.Security.RateLimitPrefix == "" {
			return errors.New("Security RateLimitPrefix must not be empty")
		}
		if c.Security.RateLimitPrefix == c.Session.RedisPrefix {
			return errors.New("Security RateLimitPrefix must differ from Session RedisPrefix")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

const minSecretLength = 32

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return false
		}
	}
	return true
}
