package api

import (
	"encoding/base64"
	"net/http"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
)

func (h *Handler) baseCookie(name string) *http.Cookie {
	c := h.cfg.Cookie
	return &http.Cookie{
		Name:     name,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, res *gateAuth.LoginResult) {
	c := h.baseCookie(h.cfg.Cookie.Name)
	c.Value = res.Cookie
	c.Expires = res.ExpiresAt
	c.MaxAge = int(h.cfg.Session.TTL / time.Second)
	http.SetCookie(w, c)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	c := h.baseCookie(name)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// csrfSecret returns the visitor's CSRF secret, minting one when the
// request carries none.
func (h *Handler) csrfSecret(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(h.cfg.Cookie.CSRFName); err == nil && c.Value != "" {
		return c.Value
	}
	return h.rotateCSRFSecret(w)
}

func (h *Handler) rotateCSRFSecret(w http.ResponseWriter) string {
	secret := h.engine.NewCSRFSecret()
	c := h.baseCookie(h.cfg.Cookie.CSRFName)
	c.Value = secret
	c.HttpOnly = true
	http.SetCookie(w, c)
	return secret
}

// Flash messages live in a short cookie read once by the next login page.
func (h *Handler) setFlash(w http.ResponseWriter, msg string) {
	c := h.baseCookie(h.cfg.Cookie.FlashName)
	c.Value = base64.RawURLEncoding.EncodeToString([]byte(msg))
	c.MaxAge = 60
	c.HttpOnly = true
	http.SetCookie(w, c)
}

func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(h.cfg.Cookie.FlashName)
	if err != nil || c.Value == "" {
		return ""
	}
	h.clearCookie(w, h.cfg.Cookie.FlashName)

	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}
