package password

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a supported hash family.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

var (
	ErrEmptyPassword        = errors.New("password must not be empty")
	ErrMalformedHash        = errors.New("malformed password hash")
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
)

// Hasher produces and checks encoded password hashes.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// NewHasher returns the default-cost hasher for alg.
func NewHasher(alg Algorithm) (Hasher, error) {
	switch alg {
	case AlgorithmBcrypt:
		return NewBcrypt(0)
	case AlgorithmArgon2id:
		return NewArgon2(DefaultArgon2Config())
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// Identify reports which algorithm produced encoded, judging by its prefix.
func Identify(encoded string) (Algorithm, bool) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return AlgorithmArgon2id, true
	case strings.HasPrefix(encoded, "$2a$"),
		strings.HasPrefix(encoded, "$2b$"),
		strings.HasPrefix(encoded, "$2y$"):
		return AlgorithmBcrypt, true
	default:
		return "", false
	}
}

// Verify checks plain against a stored bcrypt or argon2id hash. Unknown or
// malformed hashes never match.
func Verify(plain, encoded string) bool {
	alg, ok := Identify(encoded)
	if !ok {
		return false
	}

	var (
		match bool
		err   error
	)
	switch alg {
	case AlgorithmArgon2id:
		match, err = verifyArgon2(plain, encoded)
	case AlgorithmBcrypt:
		match, err = verifyBcrypt(plain, encoded)
	}
	return err == nil && match
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// DummyCompare burns roughly the cost of one bcrypt comparison. Callers use
// it when no stored hash exists so lookups of unknown users are not faster
// than wrong passwords.
func DummyCompare(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gateauth-dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
