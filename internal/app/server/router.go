package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/audit"
	"rhportal/internal/domain/identity"
	"rhportal/internal/domain/session"
	"rhportal/internal/platform/config"
	"rhportal/internal/platform/metrics"
	accesshandler "rhportal/internal/transport/http/handlers/access"
	audithandler "rhportal/internal/transport/http/handlers/audit"
	authhandler "rhportal/internal/transport/http/handlers/auth"
	pageshandler "rhportal/internal/transport/http/handlers/pages"
	reportshandler "rhportal/internal/transport/http/handlers/reports"
	"rhportal/internal/transport/http/middleware"
	"rhportal/internal/transport/http/view"
)

// auditReadRank gates the audit API.
const auditReadRank access.Rank = 4

// Deps is everything the router needs. Ready may be nil.
type Deps struct {
	Config   config.Config
	Log      *zap.Logger
	Policy   *access.Policy
	Sessions *session.Manager
	Identity identity.Authenticator
	// SecondFactors is nil when no encryption key is configured.
	SecondFactors authhandler.SecondFactorEnroller
	Audit         audit.Recorder
	Events        audithandler.Lister
	Metrics       *metrics.Collector
	View          *view.Renderer
	Ready         func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(d.Log, d.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(d.Config.IsProduction()))
	router.Use(middleware.BodyLimit(d.Config.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if d.Config.MetricsEnabled && d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler())
	}

	loginLimit := middleware.LoginRateLimit(d.Config.LoginRateLimitPerMinute, time.Minute, d.Log)
	authHandler := &authhandler.Handler{
		Identity:      d.Identity,
		SecondFactors: d.SecondFactors,
		Sessions:      d.Sessions,
		Policy:        d.Policy,
		View:          d.View,
		Audit:         d.Audit,
		Metrics:       d.Metrics,
		Log:           d.Log,
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Sessions))
		r.Group(func(r chi.Router) {
			r.Use(loginLimit)
			authHandler.RegisterAPI(r)
		})
		authHandler.RegisterAccount(r)
		accesshandler.NewHandler(d.Policy).RegisterRoutes(r)
		if d.Events != nil {
			audithandler.NewHandler(d.Events, auditReadRank, d.Log).RegisterRoutes(r)
		}
	})

	// Logout sits outside the route gate so a broken credential can still be cleared.
	router.Post("/logout", authHandler.HandleLogout)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RouteAccess(d.Policy, d.Sessions,
			middleware.WithAccessLogger(d.Log),
			middleware.WithAccessMetrics(d.Metrics),
			middleware.WithAuditor(d.Audit),
		))
		r.Group(func(r chi.Router) {
			r.Use(loginLimit)
			authHandler.RegisterPages(r)
		})
		reportshandler.NewHandler(d.Policy, d.Log).RegisterRoutes(r)
		pageshandler.NewHandler(d.Policy, d.View, d.Log).RegisterRoutes(r)
	})

	return router
}
