package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2Prefix          = "$argon2id$"
)

// Argon2Config holds argon2id cost parameters.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns the parameters used by hash-password when none
// are supplied.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies argon2id PHC strings.
type Argon2 struct {
	config Argon2Config
}

type argon2Hash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if cfg.Memory < minMemoryKB {
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return nil, errors.New("argon2 time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return nil, errors.New("argon2 parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return nil, errors.New("argon2 salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return nil, errors.New("argon2 key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC encoded argon2id hash of plain.
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
func (a *Argon2) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plain), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encoded. A malformed hash is an error,
// never a match.
func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	return verifyArgon2(plain, encoded)
}

func verifyArgon2(plain, encoded string) (bool, error) {
	h, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plain), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(computed, h.key) == 1, nil
}

func parseArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: not an argon2id PHC string", ErrMalformedHash)
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}

	h := &argon2Hash{}
	if err := h.parseParams(parts[3]); err != nil {
		return nil, err
	}

	h.salt, err = decodeBase64(parts[4])
	if err != nil || len(h.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	h.key, err = decodeBase64(parts[5])
	if err != nil || len(h.key) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: invalid key", ErrMalformedHash)
	}

	return h, nil
}

func (h *argon2Hash) parseParams(part string) error {
	var seen int
	for _, pair := range strings.Split(part, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: invalid parameter %q", ErrMalformedHash, pair)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid parameter %q", ErrMalformedHash, pair)
		}

		switch name {
		case "m":
			if n < uint64(minMemoryKB) {
				return fmt.Errorf("%w: memory below minimum", ErrMalformedHash)
			}
			h.memory = uint32(n)
		case "t":
			if n < uint64(minTimeCost) {
				return fmt.Errorf("%w: time below minimum", ErrMalformedHash)
			}
			h.time = uint32(n)
		case "p":
			if n < uint64(minParallelism) || n > 255 {
				return fmt.Errorf("%w: invalid parallelism", ErrMalformedHash)
			}
			h.parallelism = uint8(n)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
		seen++
	}
	if seen != 3 || h.memory == 0 || h.time == 0 || h.parallelism == 0 {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}

// decodeBase64 accepts both padded and unpadded standard base64, since PHC
// strings in the wild use either.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
