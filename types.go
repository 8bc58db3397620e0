package gateAuth

import "time"

// LoginResult is returned by a successful Engine.Login.
type LoginResult struct {
	Principal Principal
	Auth      AuthenticationResult
	// Cookie is the signed value for the session cookie.
	Cookie    string
	ExpiresAt time.Time
}

// HealthStatus is a point-in-time view of the session backend.
type HealthStatus struct {
	RedisReachable bool
	RedisLatency   time.Duration
}
