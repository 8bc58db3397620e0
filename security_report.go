package gateAuth

import (
	"net/http"
	"time"
)

// SecurityReport summarises the security posture of a built engine. It never
// contains secrets.
type SecurityReport struct {
	HashedPasswords bool
	UserCount       int
	// UnrestrictedUsers counts writable users with access to every app.
	UnrestrictedUsers   int
	GeneratedSecret     bool
	PreviousSecrets     int
	SessionTTL          time.Duration
	SessionEncoding     string
	CookieSecure        bool
	CookieHTTPOnly      bool
	CookieSameSite      http.SameSite
	LoginThrottleActive bool
	IPThrottleActive    bool
	AuditEnabled        bool
	MetricsEnabled      bool
}

// SecurityReport returns the posture of e.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	unrestricted := 0
	for i := range e.credentials.records {
		r := &e.credentials.records[i]
		if r.AllowedApps == nil && !r.ReadOnly {
			unrestricted++
		}
	}

	throttle := e.rateLimiter != nil &&
		e.config.Security.MaxLoginAttempts > 0 &&
		e.config.Security.LoginCooldownDuration > 0

	return SecurityReport{
		HashedPasswords:     e.config.Credentials.UseEncryptedPasswords,
		UserCount:           e.credentials.Len(),
		UnrestrictedUsers:   unrestricted,
		GeneratedSecret:     e.generatedSecret,
		PreviousSecrets:     len(e.config.Session.PreviousSecrets),
		SessionTTL:          e.config.Session.TTL,
		SessionEncoding:     e.config.Session.SessionEncoding,
		CookieSecure:        e.config.Cookie.Secure,
		CookieHTTPOnly:      e.config.Cookie.HTTPOnly,
		CookieSameSite:      e.config.Cookie.SameSite,
		LoginThrottleActive: throttle,
		IPThrottleActive:    throttle && e.config.Security.EnableIPThrottle,
		AuditEnabled:        e.config.Audit.Enabled,
		MetricsEnabled:      e.config.Metrics.Enabled,
	}
}

// Warnings lists the settings an operator should review before exposing the
// dashboard.
func (r SecurityReport) Warnings() []string {
	var out []string
	if !r.HashedPasswords {
		out = append(out, "passwords are stored in plain text")
	}
	if r.GeneratedSecret {
		out = append(out, "session secret is generated per process")
	}
	if !r.CookieSecure {
		out = append(out, "session cookie is sent over plain http")
	}
	if !r.CookieHTTPOnly {
		out = append(out, "session cookie is readable from scripts")
	}
	if !r.LoginThrottleActive {
		out = append(out, "login throttling is disabled")
	}
	return out
}
