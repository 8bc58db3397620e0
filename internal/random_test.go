package internal

import (
	"encoding/hex"
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID: %v", err)
	}
	if parsed != sid {
		t.Fatalf("round trip mismatch: %x != %x", parsed, sid)
	}
}

func TestSessionIDsAreDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID: %v", err)
		}
		if _, dup := seen[sid.String()]; dup {
			t.Fatalf("duplicate session id after %d draws", i)
		}
		seen[sid.String()] = struct{}{}
	}
}

func TestParseSessionIDRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "!!!", "c2hvcnQ", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := ParseSessionID(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestNewCookieSecretLength(t *testing.T) {
	secret, err := NewCookieSecret()
	if err != nil {
		t.Fatalf("NewCookieSecret: %v", err)
	}
	raw, err := hex.DecodeString(secret)
	if err != nil {
		t.Fatalf("secret is not hex: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(raw))
	}
}

func FuzzParseSessionID(f *testing.F) {
	sid, err := NewSessionID()
	if err == nil {
		f.Add(sid.String())
	}
	f.Add("")
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseSessionID(input)
		if err != nil {
			return
		}
		if parsed.String() != input {
			t.Fatalf("re-encode mismatch: %q != %q", parsed.String(), input)
		}
	})
}
