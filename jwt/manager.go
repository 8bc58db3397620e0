package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 32

var (
	// ErrInvalidToken is returned for any cookie value that does not verify.
	ErrInvalidToken = errors.New("invalid session token")
)

// Config configures a session cookie token [Manager].
type Config struct {
	// Secret signs new tokens and verifies existing ones.
	Secret []byte
	// PreviousSecrets verify tokens signed before a secret rotation.
	PreviousSecrets [][]byte
	TTL             time.Duration
	Issuer          string
	Leeway          time.Duration
	MaxFutureIAT    time.Duration
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 session cookie tokens.
type Manager struct {
	config Config
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretBytes)
	}
	for i, prev := range cfg.PreviousSecrets {
		if len(prev) < minSecretBytes {
			return nil, fmt.Errorf("previous session secret %d must be at least %d bytes", i, minSecretBytes)
		}
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// Issue returns a signed token binding sid, expiring after the configured TTL.
func (m *Manager) Issue(sid string) (string, time.Time, error) {
	if sid == "" {
		return "", time.Time{}, errors.New("session id is required")
	}

	issued := m.now()
	expires := issued.Add(m.config.TTL)
	claims := SessionClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    m.config.Issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Parse verifies tokenStr and returns its claims. Tokens signed with any
// previous secret are accepted until they expire.
func (m *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	parser := jwt.NewParser(options...)

	var lastErr error
	for _, secret := range m.secrets() {
		claims, err := m.parseWith(parser, tokenStr, secret)
		if err == nil {
			return claims, nil
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidToken, lastErr)
}

func (m *Manager) parseWith(parser *jwt.Parser, tokenStr string, secret []byte) (*SessionClaims, error) {
	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, errors.New("token iat too far in the future")
	}
	return claims, nil
}

func (m *Manager) secrets() [][]byte {
	out := make([][]byte, 0, 1+len(m.config.PreviousSecrets))
	out = append(out, m.config.Secret)
	return append(out, m.config.PreviousSecrets...)
}
