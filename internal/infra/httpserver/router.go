package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	appai "github.com/bryanwahyu/neuroscan/internal/application/ai"
	appsamples "github.com/bryanwahyu/neuroscan/internal/application/samples"
	appscans "github.com/bryanwahyu/neuroscan/internal/application/scans"
	"github.com/bryanwahyu/neuroscan/internal/application/session"
	"github.com/bryanwahyu/neuroscan/internal/logger"
	"github.com/bryanwahyu/neuroscan/internal/metrics"
	"github.com/bryanwahyu/neuroscan/internal/middleware"
)

const module = "http"

// 20 MB covers the largest MRI slices we accept
const maxUpload = 20 << 20

// Deps are the services and settings the router serves.
type Deps struct {
	Sessions *session.Manager
	Scans    *appscans.Service
	Samples  *appsamples.Service
	AI       *appai.Service
	Log      logger.ILogger

	APIKeys     map[string]string
	CORSOrigins []string
	RateRPS     float64
	RateBurst   int
	Health      map[string]middleware.HealthChecker
}

type Router struct {
	sessions *session.Manager
	scans    *appscans.Service
	samples  *appsamples.Service
	ai       *appai.Service
	log      logger.ILogger
	validate *validator.Validate
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	r := &Router{
		sessions: d.Sessions,
		scans:    d.Scans,
		samples:  d.Samples,
		ai:       d.AI,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.LoggingMiddleware(log))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Handle("/metrics", metrics.Handler())

	limit := middleware.RateLimitMiddleware(d.RateRPS, d.RateBurst)

	// analysis without an account; saving is refused
	mux.Route("/v1/anonymous", func(rt chi.Router) {
		rt.Use(limit)
		rt.Route("/sessions", r.sessionRoutes)
	})

	mux.Route("/v1/{owner}", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(d.APIKeys))
		rt.Use(middleware.RequireOwner)
		rt.Use(limit)

		rt.Route("/sessions", r.sessionRoutes)

		rt.Get("/scans/latest", r.wrap(r.handleLatest))
		rt.Get("/scans/{id}", r.wrap(r.handleGet))
		rt.Delete("/scans/{id}", r.wrap(r.handleDelete))
		rt.Get("/scans/{id}/narrative", r.wrap(r.handleNarrative))
		rt.Get("/summary", r.wrap(r.handleSummary))

		rt.Get("/samples", r.wrap(r.handleListSamples))
		rt.Post("/samples", r.wrap(r.handleAddSample))
		rt.Delete("/samples/{id}", r.wrap(r.handleDeleteSample))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, retryable := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.log.Error(module, "request failed", map[string]interface{}{
					"method": req.Method,
					"path":   req.URL.Path,
					"status": status,
					"error":  err,
				})
			}
			writeError(w, status, err, retryable)
		}
	}
}

// owner is the authenticated owner, empty on anonymous routes.
func owner(req *http.Request) string {
	return middleware.GetOwnerFromContext(req.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error, retryable bool) {
	body := map[string]any{"error": err.Error()}
	if retryable {
		body["retryable"] = true
	}
	_ = writeJSON(w, status, body)
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// background detaches a request context so work outlives the response.
func background(req *http.Request) context.Context {
	return context.WithoutCancel(req.Context())
}
