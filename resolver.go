package gateAuth

import "context"

// Resolve re-derives the authorization of a restored session identity from
// the current user list. It never checks a password. A user removed from
// configuration resolves to an unauthenticated result.
func (e *Engine) Resolve(p Principal) AuthenticationResult {
	if e == nil || p.IsZero() {
		return AuthenticationResult{}
	}
	return e.validator.lookupByUsername(p.identity)
}

// Authenticate verifies a session cookie value, restores its session and
// resolves the identity's current scope. Any failure leaves the request
// anonymous.
func (e *Engine) Authenticate(ctx context.Context, cookieValue string) (Principal, AuthenticationResult, bool) {
	if e == nil || cookieValue == "" {
		return Principal{}, AuthenticationResult{}, false
	}

	claims, err := e.tokens.Parse(cookieValue)
	if err != nil {
		e.logger.Debug("rejecting session cookie", "err", err)
		return Principal{}, AuthenticationResult{}, false
	}

	p, ok := e.sessions.RestoreSession(ctx, claims.SID)
	if !ok {
		return Principal{}, AuthenticationResult{}, false
	}

	res := e.Resolve(p)
	if !res.Authenticated {
		e.logger.Info("session identity is no longer configured", "identity", p.identity)
		return Principal{}, AuthenticationResult{}, false
	}
	return p, res, true
}
