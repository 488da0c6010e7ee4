// Package httpapi exposes the gateway's JSON API and page-route front door.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/higher-endeavors/endeavors/internal/app/metrics"
	"github.com/higher-endeavors/endeavors/internal/app/services/billing"
	"github.com/higher-endeavors/endeavors/internal/app/services/bodycomp"
	"github.com/higher-endeavors/endeavors/internal/app/services/devices"
	"github.com/higher-endeavors/endeavors/internal/app/services/lifts"
	"github.com/higher-endeavors/endeavors/internal/app/services/settings"
	"github.com/higher-endeavors/endeavors/internal/app/services/training"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	"github.com/higher-endeavors/endeavors/internal/auth"
	"github.com/higher-endeavors/endeavors/internal/config"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/internal/integrations/cms"
	"github.com/higher-endeavors/endeavors/internal/middleware"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the API serves from. Optional integrations may be nil.
type Deps struct {
	Config *config.Config
	Auth   *auth.Authenticator
	Guard  *auth.Guard
	Users  storage.UserStore

	Training *training.Service
	Lifts    *lifts.Service
	Settings *settings.Service
	BodyComp *bodycomp.Service
	Devices  *devices.Service
	Billing  *billing.Service
	CMS      *cms.Client

	Audit       storage.AuditStore
	Health      Pinger
	RateLimiter *middleware.RateLimiter
	Logger      *logger.Logger
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	Deps
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the full HTTP surface: API routes under /api, ops
// endpoints, and the guarded page fallback.
func NewHandler(d Deps) (http.Handler, error) {
	if d.Logger == nil {
		d.Logger = logger.NewDefault("httpapi")
	}
	if d.Config == nil {
		d.Config = &config.Config{Env: config.EnvDevelopment}
	}
	var sink auditSink
	if d.Audit != nil {
		sink = d.Audit
	}
	h := &handler{Deps: d, audit: newAuditLog(500, sink, d.Logger.Named("audit")), log: d.Logger}

	pages, err := newPageHandler(d.Config.Frontend.UpstreamURL, d.Logger)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(d.Logger))
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(d.Guard.Attach)
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Handler)
	}
	api.Use(h.audit.middleware)

	h.publicRoutes(api)

	authed := api.NewRoute().Subrouter()
	authed.Use(d.Guard.RequireSession)
	h.trainingRoutes(authed)
	h.accountRoutes(authed)
	h.deviceRoutes(authed)
	h.billingRoutes(authed)
	h.sessionRoutes(authed)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(d.Guard.RequireRole("admin"))
	admin.HandleFunc("/users/{id:[0-9]+}/programs", h.adminUserPrograms).Methods(http.MethodGet)
	admin.HandleFunc("/audit", h.adminAudit).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "Not found")
	})
	r.NotFoundHandler = pages

	guard := middleware.NewRouteGuard(d.Config.Routes(), d.Config.SessionCookieName(), d.Config.Env, d.Logger.Named("route-guard"))
	var out http.Handler = guard.Handler(r)
	out = middleware.NewCORSMiddleware(d.Config.CORS.AllowedOrigins).Handler(out)
	out = metrics.InstrumentHandler(out)
	out = middleware.RequestID(out)
	return out, nil
}

func (h *handler) publicRoutes(api *mux.Router) {
	api.HandleFunc("/auth/signin/cognito", h.cognitoSignIn).Methods(http.MethodGet)
	api.HandleFunc("/auth/callback/cognito", h.cognitoCallback).Methods(http.MethodGet)
	api.HandleFunc("/auth/email", h.requestMagicLink).Methods(http.MethodPost)
	api.HandleFunc("/auth/email/verify", h.verifyMagicLink).Methods(http.MethodGet)

	api.HandleFunc("/stripe/webhook", h.stripeWebhook).Methods(http.MethodPost)
	api.HandleFunc("/garmin-connect/webhook", h.garminWebhook).Methods(http.MethodPost)
	api.HandleFunc("/telemetry/config", h.telemetryConfig).Methods(http.MethodGet)

	api.HandleFunc("/guide/articles", h.guideArticles).Methods(http.MethodGet)
	api.HandleFunc("/guide/articles/{slug}", h.guideArticle).Methods(http.MethodGet)
	api.HandleFunc("/guide/recipes", h.guideRecipes).Methods(http.MethodGet)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.log.WithContext(r.Context()).WithError(err).Warn("health check failed")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) telemetryConfig(w http.ResponseWriter, r *http.Request) {
	t := h.Config.Telemetry
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":            t.Enabled,
		"dsn":                t.DSN,
		"environment":        h.Config.Env,
		"sample_rate":        t.SampleRate,
		"replay_sample_rate": t.ReplaySampleRate,
		"error_replay_rate":  t.ErrorReplayRate,
	})
}

func (h *handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.listLimit(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, h.log, err)
}

// session returns the caller's session. Routes behind RequireSession always
// have one.
func session(r *http.Request) *auth.Session {
	return auth.SessionFromContext(r.Context())
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// targetUser resolves an optional user id from a request against the session:
// absent means the caller, anything else must pass AuthorizeUser.
func targetUser(s *auth.Session, requested int64) (int64, error) {
	if requested == 0 {
		return s.UserID, nil
	}
	if err := auth.AuthorizeUser(s, requested); err != nil {
		return 0, err
	}
	return requested, nil
}

func authorize(r *http.Request, userID int64) error {
	return auth.AuthorizeUser(session(r), userID)
}
