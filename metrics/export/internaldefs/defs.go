package internaldefs

import (
	gateAuth "github.com/MrEthical07/gateAuth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   gateAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   gateAuth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: gateAuth.MetricLoginSuccess, Name: "gateauth_login_success_total", Help: "Successful dashboard logins."},
	{ID: gateAuth.MetricLoginFailure, Name: "gateauth_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: gateAuth.MetricLoginRateLimited, Name: "gateauth_login_rate_limited_total", Help: "Logins refused by the login throttle."},
	{ID: gateAuth.MetricCSRFRejected, Name: "gateauth_csrf_rejected_total", Help: "Requests rejected for a missing or invalid CSRF token."},
	{ID: gateAuth.MetricSessionCreated, Name: "gateauth_session_created_total", Help: "Sessions persisted."},
	{ID: gateAuth.MetricSessionCreateFailed, Name: "gateauth_session_create_failed_total", Help: "Accepted logins whose session could not be persisted."},
	{ID: gateAuth.MetricSessionRestored, Name: "gateauth_session_restored_total", Help: "Requests restored from a live session."},
	{ID: gateAuth.MetricSessionRestoreMiss, Name: "gateauth_session_restore_miss_total", Help: "Session lookups that found nothing usable."},
	{ID: gateAuth.MetricSessionExpired, Name: "gateauth_session_expired_total", Help: "Session lookups past their expiry not yet evicted by the store."},
	{ID: gateAuth.MetricSessionStoreUnavailable, Name: "gateauth_session_store_errors_total", Help: "Session store operations that failed."},
	{ID: gateAuth.MetricLogout, Name: "gateauth_logout_total", Help: "Sessions destroyed by logout."},
	{ID: gateAuth.MetricLogoutFailure, Name: "gateauth_logout_failure_total", Help: "Logouts whose session could not be deleted."},
}

var HistogramDefs = []HistogramDef{
	{ID: gateAuth.MetricRestoreLatency, Name: "gateauth_session_restore_seconds", Help: "Session store round trip on restore."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's
// restore latency buckets.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument name suffixes.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

const (
	AuditDroppedName = "gateauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped on a full dispatcher buffer."

	AuditDroppedByEventName = "gateauth_audit_dropped_events_total"
	AuditDroppedByEventHelp = "Audit events dropped, by event type."

	StoreUpName   = "gateauth_session_store_up"
	StoreUpHelp   = "1 when the session store answered the last ping."
	StorePingName = "gateauth_session_store_ping_seconds"
	StorePingHelp = "Round trip of the last session store ping."
)

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
