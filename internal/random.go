package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// SessionID is the raw 128-bit session identifier.
type SessionID [16]byte

const (
	cookieSecretSize = 64
	csrfSaltSize     = 8
)

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the string form produced by SessionID.String.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewCookieSecret returns a hex encoded 64-byte secret used to sign session
// cookies when the operator did not configure one.
func NewCookieSecret() (string, error) {
	var raw [cookieSecretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// NewCSRFSalt returns a hex salt for a single CSRF token. Hex keeps the "-"
// separator unambiguous.
func NewCSRFSalt() (string, error) {
	var raw [csrfSaltSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}
