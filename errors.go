package gateAuth

import "errors"

var (
	// ErrInvalidCredentials is returned when the username is unknown or the
	// password does not match. The two cases are never distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFMismatch is returned when an anti-forgery token is missing or wrong.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrLoginRateLimited is returned when the login throttle budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionStoreUnavailable wraps network or server failures of the session store.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionCreationFailed is returned when a session could not be persisted
	// after credentials were accepted.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed is returned when a session could not be deleted.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrRevokeUnsupported is returned by RevokeIdentity when the session store
	// keeps no per-identity index.
	ErrRevokeUnsupported = errors.New("session store cannot revoke by identity")
	// ErrSessionNotFound marks a missing or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
