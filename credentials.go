package gateAuth

import (
	"slices"

	"github.com/MrEthical07/gateAuth/password"
)

// UserRecord is one statically configured dashboard user.
type UserRecord struct {
	Username string
	// Secret is a plain password or a bcrypt/argon2id hash, depending on
	// CredentialsConfig.UseEncryptedPasswords.
	Secret string
	// AllowedApps limits the user to the listed application ids. nil means
	// every managed application.
	AllowedApps []string
	ReadOnly    bool
}

// AuthenticationResult is the outcome of a credential check or a session
// lookup. Its shape does not depend on the comparison mode.
//
// Identity is non-empty if and only if Authenticated is true.
type AuthenticationResult struct {
	Authenticated bool
	Identity      string
	AllowedApps   []string
	ReadOnly      bool
}

// CanAccess reports whether the result grants access to appID.
func (r AuthenticationResult) CanAccess(appID string) bool {
	if !r.Authenticated {
		return false
	}
	if r.AllowedApps == nil {
		return true
	}
	return slices.Contains(r.AllowedApps, appID)
}

// CredentialStore is the immutable, ordered list of configured users. It is
// safe for concurrent reads.
type CredentialStore struct {
	records []UserRecord
}

// NewCredentialStore copies records so later mutation by the caller has no
// effect. Duplicate usernames are kept; the first configured match wins.
func NewCredentialStore(records []UserRecord) *CredentialStore {
	out := make([]UserRecord, len(records))
	for i, r := range records {
		out[i] = r
		if r.AllowedApps != nil {
			out[i].AllowedApps = slices.Clone(r.AllowedApps)
		}
	}
	return &CredentialStore{records: out}
}

// Len returns the number of configured users.
func (s *CredentialStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

func (s *CredentialStore) lookupByUsername(username string) AuthenticationResult {
	if s == nil || username == "" {
		return AuthenticationResult{}
	}
	for i := range s.records {
		if s.records[i].Username == username {
			return authenticatedAs(&s.records[i])
		}
	}
	return AuthenticationResult{}
}

func authenticatedAs(r *UserRecord) AuthenticationResult {
	res := AuthenticationResult{
		Authenticated: true,
		Identity:      r.Username,
		ReadOnly:      r.ReadOnly,
	}
	if r.AllowedApps != nil {
		res.AllowedApps = slices.Clone(r.AllowedApps)
	}
	return res
}

// CredentialValidator checks submitted credentials against a CredentialStore.
type CredentialValidator struct {
	store  *CredentialStore
	hashed bool
}

// NewCredentialValidator returns a validator. hashed selects bcrypt/argon2id
// verification; otherwise secrets are compared with ==, which leaks timing.
func NewCredentialValidator(store *CredentialStore, hashed bool) *CredentialValidator {
	return &CredentialValidator{store: store, hashed: hashed}
}

// Validate returns an authenticated result for the first record whose
// username matches exactly and whose secret matches in the configured mode.
func (v *CredentialValidator) Validate(username, plain string) AuthenticationResult {
	if v == nil || v.store == nil || username == "" {
		return AuthenticationResult{}
	}

	seen := false
	for i := range v.store.records {
		r := &v.store.records[i]
		if r.Username != username {
			continue
		}
		seen = true
		if v.secretMatches(plain, r.Secret) {
			return authenticatedAs(r)
		}
	}

	if !seen && v.hashed {
		password.DummyCompare(plain)
	}
	return AuthenticationResult{}
}

func (v *CredentialValidator) secretMatches(plain, secret string) bool {
	if v.hashed {
		return password.Verify(plain, secret)
	}
	// Plain mode: not constant-time.
	return plain == secret
}

// lookupByUsername matches the username only. It never reads Secret and is
// reached only through Engine.Resolve with a restored Principal.
func (v *CredentialValidator) lookupByUsername(username string) AuthenticationResult {
	if v == nil {
		return AuthenticationResult{}
	}
	return v.store.lookupByUsername(username)
}
