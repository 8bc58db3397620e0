package gateAuth

import "time"

// Principal is the identity bound to a live session. Only the SessionManager
// creates one, so holding a Principal proves a session was created or
// restored for it.
type Principal struct {
	identity  string
	sessionID string
	expiresAt time.Time
}

func (p Principal) Identity() string { return p.identity }

func (p Principal) SessionID() string { return p.sessionID }

func (p Principal) ExpiresAt() time.Time { return p.expiresAt }

// IsZero reports whether p is the empty Principal.
func (p Principal) IsZero() bool { return p.identity == "" }
