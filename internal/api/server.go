// Package api exposes the template service over HTTP: template fetch
// and evaluation for clients, publish/rollback/version history for
// admins, and an SSE stream announcing template changes.
package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TimurManjosov/goconfigship/internal/audit"
	"github.com/TimurManjosov/goconfigship/internal/auth"
	"github.com/TimurManjosov/goconfigship/internal/condition"
	"github.com/TimurManjosov/goconfigship/internal/config"
	"github.com/TimurManjosov/goconfigship/internal/snapshot"
	"github.com/TimurManjosov/goconfigship/internal/store"
	"github.com/TimurManjosov/goconfigship/internal/telemetry"
	"github.com/TimurManjosov/goconfigship/internal/version"
	"github.com/TimurManjosov/goconfigship/internal/webhook"
)

// requestTimeout bounds every request except the SSE stream.
const requestTimeout = 15 * time.Second

type Server struct {
	cfg      *config.Config
	store    store.Store
	holder   *snapshot.Holder
	eval     *condition.Evaluator
	keychain *auth.Keychain
	audit    *audit.Recorder
	webhooks *webhook.Dispatcher
	log      zerolog.Logger
}

// NewServer wires the HTTP layer. audit and webhooks may be nil, in
// which case the corresponding notifications are skipped. When both
// keychain and audit recorder are present, rejected requests are
// recorded as auth-failure events.
func NewServer(cfg *config.Config, st store.Store, holder *snapshot.Holder, kc *auth.Keychain, rec *audit.Recorder, hooks *webhook.Dispatcher, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		holder:   holder,
		eval:     condition.NewEvaluator(log),
		keychain: kc,
		audit:    rec,
		webhooks: hooks,
		log:      log,
	}
	if kc != nil && rec != nil {
		kc.OnFailure(func(r *http.Request, reason string) {
			rec.Record(audit.AuthFailure(r, reason))
		})
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(telemetry.Middleware)
	r.Use(otelhttp.NewMiddleware("configship"))
	r.Use(middleware.Recoverer)
	r.Use(httprate.Limit(s.cfg.RateLimitPerIP, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(RateLimitedError),
	))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// Client surface: template fetch and evaluation.
		r.Group(func(r chi.Router) {
			r.Use(s.keyLimiter(s.cfg.RateLimitPerKey))
			r.Use(s.keychain.Require(auth.RoleClient))
			r.Get("/v1/template", s.handleGetTemplate)
			r.Post("/v1/evaluate", s.handleEvaluate)
			r.Post("/v1/conditions/evaluate", s.handleEvaluateConditions)
		})

		// Admin surface: publishing and history.
		r.Group(func(r chi.Router) {
			r.Use(s.keyLimiter(s.cfg.RateLimitAdminPerKey))
			r.Use(s.keychain.Require(auth.RoleAdmin))
			r.Post("/v1/template", s.handlePublishTemplate)
			r.Get("/v1/template/versions", s.handleListVersions)
			r.Post("/v1/template/rollback", s.handleRollback)
		})
	})

	// The stream stays open indefinitely, so no request timeout.
	r.Group(func(r chi.Router) {
		r.Use(s.keychain.Require(auth.RoleClient))
		r.Get("/v1/stream", s.handleStream)
	})

	return r
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version.Version})
}

// keyLimiter rate-limits by API key, falling back to client IP for
// anonymous requests. Tokens are hashed so they never sit in the
// limiter's bucket map.
func (s *Server) keyLimiter(limit int) func(http.Handler) http.Handler {
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(bearerKey),
		httprate.WithLimitHandler(RateLimitedError),
	)
}

func bearerKey(r *http.Request) (string, error) {
	if token := auth.ExtractBearerToken(r.Header.Get("Authorization")); token != "" {
		sum := sha256.Sum256([]byte(token))
		return hex.EncodeToString(sum[:8]), nil
	}
	return httprate.KeyByIP(r)
}
