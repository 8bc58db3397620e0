package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/MrEthical07/gateAuth/internal"
	"github.com/google/uuid"
)

const minKeyBytes = 32

// Guard mints and checks anti-forgery tokens bound to a per-visitor secret.
//
// Token layout: salt "-" base64url(HMAC-SHA256(key, salt "-" secret)).
type Guard struct {
	key []byte
}

func NewGuard(key []byte) (*Guard, error) {
	if len(key) < minKeyBytes {
		return nil, errors.New("csrf key must be at least 32 bytes")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Guard{key: k}, nil
}

// NewSecret returns a fresh visitor secret.
func (g *Guard) NewSecret() string {
	return uuid.NewString()
}

// IssueToken returns a token for secret. Every call uses a new salt, so two
// tokens for the same secret differ but both verify.
func (g *Guard) IssueToken(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("csrf secret is required")
	}
	salt, err := internal.NewCSRFSalt()
	if err != nil {
		return "", err
	}
	return salt + "-" + g.sign(salt, secret), nil
}

// Verify reports whether token was minted for secret.
func (g *Guard) Verify(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	salt, mac, ok := strings.Cut(token, "-")
	if !ok || salt == "" || mac == "" {
		return false
	}
	expected := g.sign(salt, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(mac)) == 1
}

func (g *Guard) sign(salt, secret string) string {
	h := hmac.New(sha256.New, g.key)
	h.Write([]byte(salt))
	h.Write([]byte("-"))
	h.Write([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
