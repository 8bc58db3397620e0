package middleware

import (
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/go-chi/render"
)

// CSRFFormField is the form field carrying the anti-forgery token.
const CSRFFormField = "_csrf"

var csrfHeaders = []string{"CSRF-Token", "XSRF-Token", "X-CSRF-Token", "X-XSRF-Token"}

// RequireCSRF rejects unsafe requests whose token does not match the
// visitor's CSRF secret cookie with 403, before the wrapped handler runs.
// GET, HEAD and OPTIONS pass through.
func RequireCSRF(engine *gateAuth.Engine) func(http.Handler) http.Handler {
	var secretCookie string
	if engine != nil {
		secretCookie = engine.Config().Cookie.CSRFName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if engine == nil {
				csrfRejected(w, r)
				return
			}

			var secret string
			if c, err := r.Cookie(secretCookie); err == nil {
				secret = c.Value
			}

			if !engine.VerifyCSRFToken(r.Context(), secret, csrfToken(r)) {
				csrfRejected(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func csrfToken(r *http.Request) string {
	if v := r.PostFormValue(CSRFFormField); v != "" {
		return v
	}
	for _, h := range csrfHeaders {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}

func csrfRejected(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, map[string]string{"error": "invalid csrf token"})
}
