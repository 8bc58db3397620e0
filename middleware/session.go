package middleware

import (
	"context"
	"net"
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
)

type principalContextKey struct{}
type authResultContextKey struct{}

// PrincipalFromContext returns the session principal loaded by LoadSession.
func PrincipalFromContext(ctx context.Context) (gateAuth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(gateAuth.Principal)
	return p, ok && !p.IsZero()
}

// AuthResultFromContext returns the identity's current authorization.
func AuthResultFromContext(ctx context.Context) (gateAuth.AuthenticationResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(gateAuth.AuthenticationResult)
	return res, ok && res.Authenticated
}

// RequestMeta copies the client address and user agent into the request
// context for throttling and audit. It trusts r.RemoteAddr as is; only put
// chi's RealIP in front of it when a proxy that overwrites the forwarding
// headers sits between the client and the dashboard.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := gateAuth.WithClientIP(r.Context(), ip)
		ctx = gateAuth.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoadSession restores the session named by the engine's session cookie.
// Requests without a usable session continue anonymously.
func LoadSession(engine *gateAuth.Engine) func(http.Handler) http.Handler {
	var cookieName string
	if engine != nil {
		cookieName = engine.Config().Cookie.Name
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, res, ok := engine.Authenticate(r.Context(), c.Value)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, p)
			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession redirects anonymous requests to the login page under the
// engine's mount path. It loads the session itself when LoadSession did
// not run earlier in the chain.
func RequireSession(engine *gateAuth.Engine) func(http.Handler) http.Handler {
	load := LoadSession(engine)
	loginPath := ""
	if engine != nil {
		loginPath = engine.Config().MountPath + "login"
	}
	return func(next http.Handler) http.Handler {
		guard := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := AuthResultFromContext(r.Context()); !ok {
				redirectToLogin(w, r, loginPath)
				return
			}
			next.ServeHTTP(w, r)
		})

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFromContext(r.Context()); ok {
				guard.ServeHTTP(w, r)
				return
			}
			load(guard).ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	if loginPath == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusFound)
}
