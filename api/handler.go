package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/metrics/export/prometheus"
	"github.com/MrEthical07/gateAuth/middleware"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgRateLimited        = "Too many login attempts. Try again later."
	MsgLoginUnavailable   = "Unable to sign in right now. Try again later."
)

// App is one managed application listed on the dashboard.
type App struct {
	ID   string `json:"appId" yaml:"appId" toml:"appId"`
	Name string `json:"name,omitempty" yaml:"name" toml:"name"`
	URL  string `json:"url,omitempty" yaml:"url" toml:"url"`
}

type Options struct {
	// Apps is the managed application catalog filtered per identity.
	Apps []App
	// Metrics serves GET /metrics. Nil mounts the Prometheus exporter when
	// engine metrics are enabled.
	Metrics http.Handler
	Logger  *log.Logger
	// HealthTimeout bounds the session store ping. Zero means two seconds.
	HealthTimeout time.Duration
}

// Handler serves the login, logout, apps, health and metrics routes.
type Handler struct {
	engine        *gateAuth.Engine
	cfg           gateAuth.Config
	apps          []App
	metrics       http.Handler
	logger        *log.Logger
	healthTimeout time.Duration
}

func NewHandler(engine *gateAuth.Engine, opts Options) *Handler {
	h := &Handler{
		engine:        engine,
		cfg:           engine.Config(),
		apps:          append([]App(nil), opts.Apps...),
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		healthTimeout: opts.HealthTimeout,
	}
	if h.logger == nil {
		h.logger = log.Default().WithPrefix("gateAuth/api")
	}
	if h.healthTimeout <= 0 {
		h.healthTimeout = 2 * time.Second
	}
	if h.metrics == nil && h.cfg.Metrics.Enabled {
		h.metrics = prometheus.NewPrometheusExporter(engine).Handler()
	}
	return h
}

// Routes returns the router. Login routes live under the engine mount path.
// The login form post never loads the session, so a forged post is rejected
// by the CSRF check before it can reach the session store.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestMeta)

	mount := h.cfg.MountPath

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.With(middleware.LoadSession(h.engine)).Get(mount+"login", h.loginPage)
	r.With(middleware.RequireCSRF(h.engine)).Post(mount+"login", h.login)
	r.Get(mount+"logout", h.logout)
	r.With(middleware.RequireSession(h.engine)).Get(mount+"apps", h.listApps)

	return r
}

type loginPageResponse struct {
	CSRFToken string `json:"csrfToken"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, h.cfg.MountPath+"apps", http.StatusFound)
		return
	}

	token, err := h.engine.IssueCSRFToken(h.csrfSecret(w, r))
	if err != nil {
		h.logger.Error("issuing csrf token failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
		return
	}

	render.JSON(w, r, loginPageResponse{
		CSRFToken: token,
		Error:     h.popFlash(w, r),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	plain := r.PostFormValue("password")

	res, err := h.engine.Login(r.Context(), username, plain)
	if err != nil {
		h.setFlash(w, loginFailureMessage(err))
		if !errors.Is(err, gateAuth.ErrInvalidCredentials) && !errors.Is(err, gateAuth.ErrLoginRateLimited) {
			h.logger.Error("login could not complete", "err", err)
		}
		http.Redirect(w, r, h.cfg.MountPath+"login", http.StatusFound)
		return
	}

	h.setSessionCookie(w, res)
	h.rotateCSRFSecret(w)
	http.Redirect(w, r, h.cfg.MountPath+"apps", http.StatusFound)
}

func loginFailureMessage(err error) string {
	switch {
	case errors.Is(err, gateAuth.ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, gateAuth.ErrLoginRateLimited):
		return MsgRateLimited
	default:
		return MsgLoginUnavailable
	}
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cfg.Cookie.Name); err == nil {
		if err := h.engine.Logout(r.Context(), c.Value); err != nil {
			h.logger.Warn("logout could not delete session", "err", err)
		}
	}
	h.clearCookie(w, h.cfg.Cookie.Name)
	http.Redirect(w, r, h.cfg.MountPath+"login", http.StatusFound)
}

type appsResponse struct {
	Identity string `json:"identity"`
	ReadOnly bool   `json:"readOnly"`
	Apps     []App  `json:"apps"`
}

func (h *Handler) listApps(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	apps := make([]App, 0, len(h.apps))
	for _, app := range h.apps {
		if res.CanAccess(app.ID) {
			apps = append(apps, app)
		}
	}

	render.JSON(w, r, appsResponse{
		Identity: res.Identity,
		ReadOnly: res.ReadOnly,
		Apps:     apps,
	})
}

type healthResponse struct {
	Status         string  `json:"status"`
	RedisReachable bool    `json:"redisReachable"`
	RedisLatencyMs float64 `json:"redisLatencyMs"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	status := h.engine.Health(ctx)
	resp := healthResponse{
		Status:         "ok",
		RedisReachable: status.RedisReachable,
		RedisLatencyMs: float64(status.RedisLatency) / float64(time.Millisecond),
	}
	if !status.RedisReachable {
		resp.Status = "unavailable"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
