package password

import (
	"errors"
	"strings"
	"testing"
)

func fastArgon2() Argon2Config {
	return Argon2Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(fastArgon2())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("p@ssw0rd-ascii", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestArgon2RejectsWeakConfig(t *testing.T) {
	cfg := fastArgon2()
	cfg.Memory = 1024
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected error for low memory")
	}

	cfg = fastArgon2()
	cfg.SaltLength = 8
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected error for short salt")
	}
}

func TestArgon2MalformedHash(t *testing.T) {
	hasher, err := NewArgon2(fastArgon2())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}

	cases := []string{
		"",
		"$argon2id$",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1,x=2$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5",
	}
	for _, encoded := range cases {
		ok, err := hasher.Verify("whatever", encoded)
		if ok {
			t.Fatalf("malformed hash %q matched", encoded)
		}
		if !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for %q, got %v", encoded, err)
		}
	}
}

func TestArgon2EmptyPassword(t *testing.T) {
	hasher, err := NewArgon2(fastArgon2())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	if _, err := hasher.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}
