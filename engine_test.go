package gateAuth

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/gateAuth/session"
)

func TestLoginSuccessIssuesVerifiableCookie(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})
	ctx := context.Background()

	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Cookie == "" || res.Principal.Identity() != "admin" || !res.Auth.Authenticated {
		t.Fatalf("unexpected login result %+v", res)
	}
	if !res.ExpiresAt.Equal(res.Principal.ExpiresAt()) {
		t.Fatalf("cookie expiry %v differs from session expiry %v", res.ExpiresAt, res.Principal.ExpiresAt())
	}

	p, auth, ok := engine.Authenticate(ctx, res.Cookie)
	if !ok || p.Identity() != "admin" || p.SessionID() != res.Principal.SessionID() {
		t.Fatalf("Authenticate: ok=%v principal=%+v", ok, p)
	}
	if !auth.Authenticated || auth.Identity != "admin" {
		t.Fatalf("unexpected authorization %+v", auth)
	}

	if got := engine.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected 1 login success, got %d", got)
	}
}

func TestLoginFailureCreatesNoSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := &countingStore{SessionStore: session.NewStore(rdb, "gs", session.EncodingBinary)}
	engine := buildTestEngine(t, rdb, engineOpts{store: store})

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"ghost", "secret123"},
		{"Admin", "secret123"},
		{"", ""},
	} {
		res, err := engine.Login(context.Background(), tc.user, tc.pass)
		if !errors.Is(err, ErrInvalidCredentials) || res != nil {
			t.Fatalf("%q/%q: expected ErrInvalidCredentials, got %v", tc.user, tc.pass, err)
		}
	}
	if store.Saves() != 0 {
		t.Fatalf("failed logins must not persist sessions, got %d saves", store.Saves())
	}
}

func TestLoginHashedMode(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Credentials.UseEncryptedPasswords = true
	engine := buildTestEngine(t, rdb, engineOpts{
		cfg: cfg,
		users: []UserRecord{{
			Username:    "viewer",
			Secret:      bcryptHash(t, "v"),
			AllowedApps: []string{"app1"},
			ReadOnly:    true,
		}},
	})

	res, err := engine.Login(context.Background(), "viewer", "v")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	want := AuthenticationResult{Authenticated: true, Identity: "viewer", AllowedApps: []string{"app1"}, ReadOnly: true}
	if !reflect.DeepEqual(res.Auth, want) {
		t.Fatalf("got %+v want %+v", res.Auth, want)
	}
}

func TestLoginRateLimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3
	engine := buildTestEngine(t, rdb, engineOpts{cfg: cfg})
	ctx := WithClientIP(context.Background(), "10.0.0.1")

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// the correct password is refused while the budget is spent
	if _, err := engine.Login(ctx, "admin", "secret123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("expected 1 rate limited login, got %d", got)
	}
}

func TestLoginRateLimitByIPAcrossUsernames(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	engine := buildTestEngine(t, rdb, engineOpts{cfg: cfg})
	ctx := WithClientIP(context.Background(), "10.0.0.2")

	_, _ = engine.Login(ctx, "a", "x")
	_, _ = engine.Login(ctx, "b", "x")

	if _, err := engine.Login(ctx, "admin", "secret123"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected IP throttle to apply, got %v", err)
	}
	other := WithClientIP(context.Background(), "10.0.0.3")
	if _, err := engine.Login(other, "admin", "secret123"); err != nil {
		t.Fatalf("another IP must not be throttled: %v", err)
	}
}

func TestLoginSuccessResetsUsernameCounter(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 2
	cfg.Security.EnableIPThrottle = false
	engine := buildTestEngine(t, rdb, engineOpts{cfg: cfg})
	ctx := context.Background()

	_, _ = engine.Login(ctx, "admin", "wrong")
	if _, err := engine.Login(ctx, "admin", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, _ = engine.Login(ctx, "admin", "wrong")
	if _, err := engine.Login(ctx, "admin", "secret123"); err != nil {
		t.Fatalf("counter was not reset by the successful login: %v", err)
	}
}

func TestLoginThrottleDisabledNeedsNoRedis(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false

	engine, err := New().
		WithConfig(cfg).
		WithUsers([]UserRecord{{Username: "admin", Secret: "secret123"}}).
		WithSessionStore(session.NewStore(rdb, "gs", session.EncodingMsgpack)).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	for i := 0; i < 10; i++ {
		_, _ = engine.Login(context.Background(), "admin", "wrong")
	}
	if _, err := engine.Login(context.Background(), "admin", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginSessionStoreDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})

	mr.Close()

	res, err := engine.Login(context.Background(), "admin", "secret123")
	if !errors.Is(err, ErrSessionCreationFailed) {
		t.Fatalf("expected ErrSessionCreationFailed, got %v", err)
	}
	if res != nil {
		t.Fatal("no cookie may be issued when the session was not stored")
	}
}

func TestAuthenticateRejectsBadCookies(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})
	ctx := context.Background()

	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	parts := strings.Split(res.Cookie, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected cookie shape %q", res.Cookie)
	}
	flipped := "A"
	if parts[2][0] == 'A' {
		flipped = "B"
	}
	tampered := parts[0] + "." + parts[1] + "." + flipped + parts[2][1:]

	for name, cookie := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-token",
		"tampered": tampered,
	} {
		if _, _, ok := engine.Authenticate(ctx, cookie); ok {
			t.Fatalf("%s cookie authenticated", name)
		}
	}
}

func TestAuthenticateAfterExpiry(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := newTestClock()
	engine := buildTestEngine(t, rdb, engineOpts{clock: clock})
	ctx := context.Background()

	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	clock.Advance(599 * time.Second)
	if _, _, ok := engine.Authenticate(ctx, res.Cookie); !ok {
		t.Fatal("session rejected before expiry")
	}
	clock.Advance(2 * time.Second)
	if _, _, ok := engine.Authenticate(ctx, res.Cookie); ok {
		t.Fatal("session accepted after expiry")
	}
}

func TestResolveUsesCurrentUserList(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	first := buildTestEngine(t, rdb, engineOpts{users: []UserRecord{
		{Username: "admin", Secret: "secret123"},
		{Username: "ops", Secret: "pw", AllowedApps: []string{"app1"}},
	}})
	adminLogin, err := first.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login admin: %v", err)
	}
	opsLogin, err := first.Login(ctx, "ops", "pw")
	if err != nil {
		t.Fatalf("Login ops: %v", err)
	}

	// restart with admin removed and ops rescoped; sessions live on in Redis
	second := buildTestEngine(t, rdb, engineOpts{users: []UserRecord{
		{Username: "ops", Secret: "changed", AllowedApps: []string{"app2"}, ReadOnly: true},
	}})

	if _, _, ok := second.Authenticate(ctx, adminLogin.Cookie); ok {
		t.Fatal("removed user must resolve as anonymous")
	}
	_, auth, ok := second.Authenticate(ctx, opsLogin.Cookie)
	if !ok {
		t.Fatal("ops session should survive the restart")
	}
	want := AuthenticationResult{Authenticated: true, Identity: "ops", AllowedApps: []string{"app2"}, ReadOnly: true}
	if !reflect.DeepEqual(auth, want) {
		t.Fatalf("got %+v want %+v", auth, want)
	}

	if got := second.Resolve(Principal{}); got.Authenticated {
		t.Fatal("zero principal must resolve unauthenticated")
	}
}

func TestPreviousSecretStillVerifies(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	oldCfg := testConfig()
	oldEngine := buildTestEngine(t, rdb, engineOpts{cfg: oldCfg})
	res, err := oldEngine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	newCfg := testConfig()
	newCfg.Session.Secret = "fedcba9876543210fedcba9876543210fedcba98"
	withoutPrevious := buildTestEngine(t, rdb, engineOpts{cfg: newCfg})
	if _, _, ok := withoutPrevious.Authenticate(ctx, res.Cookie); ok {
		t.Fatal("cookie signed with an unknown secret accepted")
	}

	newCfg.Session.PreviousSecrets = []string{testSecret}
	rotated := buildTestEngine(t, rdb, engineOpts{cfg: newCfg})
	if _, _, ok := rotated.Authenticate(ctx, res.Cookie); !ok {
		t.Fatal("cookie signed with a previous secret rejected")
	}
}

func TestLogout(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})
	ctx := context.Background()

	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := engine.Logout(ctx, res.Cookie); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, ok := engine.Authenticate(ctx, res.Cookie); ok {
		t.Fatal("cookie still authenticates after logout")
	}
	if err := engine.Logout(ctx, res.Cookie); err != nil {
		t.Fatalf("repeated Logout: %v", err)
	}
	if err := engine.Logout(ctx, ""); err != nil {
		t.Fatalf("anonymous Logout: %v", err)
	}
	if err := engine.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("Logout with unverifiable cookie: %v", err)
	}
}

func TestLogoutStoreDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})
	ctx := context.Background()

	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	mr.Close()

	if err := engine.Logout(ctx, res.Cookie); !errors.Is(err, ErrSessionInvalidationFailed) {
		t.Fatalf("expected ErrSessionInvalidationFailed, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricLogoutFailure]; got != 1 {
		t.Fatalf("expected 1 logout failure, got %d", got)
	}
}

func TestCSRFTokens(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})
	ctx := context.Background()

	secret := engine.NewCSRFSecret()
	a, err := engine.IssueCSRFToken(secret)
	if err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}
	b, err := engine.IssueCSRFToken(secret)
	if err != nil {
		t.Fatalf("IssueCSRFToken: %v", err)
	}
	if a == b {
		t.Fatal("tokens should be salted")
	}
	if !engine.VerifyCSRFToken(ctx, secret, a) || !engine.VerifyCSRFToken(ctx, secret, b) {
		t.Fatal("issued tokens must verify")
	}
	if engine.VerifyCSRFToken(ctx, engine.NewCSRFSecret(), a) {
		t.Fatal("token verified against another secret")
	}
	if engine.VerifyCSRFToken(ctx, secret, "") {
		t.Fatal("empty token verified")
	}
	if got := engine.MetricsSnapshot().Counters[MetricCSRFRejected]; got != 2 {
		t.Fatalf("expected 2 csrf rejections, got %d", got)
	}
}

func TestAuditEvents(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(16)
	engine := buildTestEngine(t, rdb, engineOpts{cfg: cfg, sink: sink})
	ctx := WithUserAgent(WithClientIP(context.Background(), "192.0.2.1"), "test-agent")

	if _, err := engine.Login(ctx, "admin", "wrong"); err == nil {
		t.Fatal("expected failure")
	}
	res, err := engine.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	engine.VerifyCSRFToken(ctx, engine.NewCSRFSecret(), "bogus")
	if err := engine.Logout(ctx, res.Cookie); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	engine.Close()

	var got []AuditEvent
	for len(got) < 4 {
		select {
		case ev := <-sink.Events():
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d events", len(got))
		}
	}

	failure := got[0]
	if failure.EventType != "login_failure" || failure.Success || failure.Error != "invalid_credentials" {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if failure.Identity != "" {
		t.Fatal("failed login must not record the attempted username")
	}
	if failure.IP != "192.0.2.1" || failure.UserAgent != "test-agent" {
		t.Fatalf("request context not propagated: %+v", failure)
	}

	success := got[1]
	if success.EventType != "login_success" || !success.Success || success.Identity != "admin" || success.SessionID != res.Principal.SessionID() {
		t.Fatalf("unexpected success event %+v", success)
	}
	if got[2].EventType != "csrf_rejected" || got[2].Error != "csrf_mismatch" {
		t.Fatalf("unexpected csrf event %+v", got[2])
	}
	if got[3].EventType != "logout_session" || got[3].SessionID != res.Principal.SessionID() {
		t.Fatalf("unexpected logout event %+v", got[3])
	}
}

func TestHealth(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine := buildTestEngine(t, rdb, engineOpts{})
	ctx := context.Background()

	if h := engine.Health(ctx); !h.RedisReachable {
		t.Fatal("expected reachable redis")
	}
	mr.Close()
	if h := engine.Health(ctx); h.RedisReachable {
		t.Fatal("expected unreachable redis")
	}
}

func TestBuildRejectsIncompleteSetup(t *testing.T) {
	_, rdb := newTestRedis(t)
	users := []UserRecord{{Username: "admin", Secret: "secret123"}}

	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).WithLogger(quietLogger()).Build(); err == nil {
		t.Fatal("expected error without users")
	}
	if _, err := New().WithConfig(testConfig()).WithUsers(users).WithLogger(quietLogger()).Build(); err == nil {
		t.Fatal("expected error without a session backend")
	}

	cfg := testConfig()
	cfg.Session.Secret = "short"
	if _, err := New().WithConfig(cfg).WithUsers(users).WithRedis(rdb).WithLogger(quietLogger()).Build(); err == nil {
		t.Fatal("expected error for a short secret")
	}

	b := New().WithConfig(testConfig()).WithUsers(users).WithRedis(rdb).WithLogger(quietLogger())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on builder reuse")
	}
}

func TestBuildGeneratesSecretWhenUnset(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Session.Secret = ""
	engine := buildTestEngine(t, rdb, engineOpts{cfg: cfg})

	res, err := engine.Login(context.Background(), "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, _, ok := engine.Authenticate(context.Background(), res.Cookie); !ok {
		t.Fatal("cookie signed with the generated secret rejected")
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, _, ok := e.Authenticate(context.Background(), "x"); ok {
		t.Fatal("nil engine authenticated")
	}
	e.Close()
}
