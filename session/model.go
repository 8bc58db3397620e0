package session

import "time"

// Session is the persisted record behind a dashboard login. It is written once
// at login and only ever deleted afterwards.
//
// SessionID is not part of the encoded blob; the store fills it from the key.
type Session struct {
	SessionID string `msgpack:"-"`
	Identity  string `msgpack:"identity"`
	CreatedAt int64  `msgpack:"created_at"`
	ExpiresAt int64  `msgpack:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// TTL returns the remaining lifetime at now, or zero when expired.
func (s *Session) TTL(now time.Time) time.Duration {
	remaining := time.Unix(s.ExpiresAt, 0).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
