package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/provider"
	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
	"github.com/aradsms/sms_inbox_site/internal/site_service/middleware"
)

// Services are the application services the router exposes.
type Services struct {
	Store     *app.SettingsStore
	Snapshot  *app.SettingsSnapshot
	Auth      *app.AuthGate
	Numbers   *app.NumberService
	Inbox     *app.InboxService
	Content   *app.ContentService
	Sync      *app.SettingsSync
	Editors   *app.EditorSessions
	Providers []provider.NumberSource
}

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	Cookies         middleware.CookieConfig
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

// NewRouter builds the complete site: HTML views, the public and admin JSON
// APIs, health and metrics.
func NewRouter(svc Services, cfg RouterConfig, logger *slog.Logger) (http.Handler, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if svc.Editors == nil {
		svc.Editors = app.NewEditorSessions(app.DefaultEditorSessionTTL, app.DefaultMaxEditorSessions, logger)
	}

	views, err := NewViewHandler(svc.Snapshot, svc.Numbers, svc.Inbox, svc.Content, svc.Providers, cfg.RefreshInterval, logger)
	if err != nil {
		return nil, err
	}
	public := NewPublicHandler(svc.Store, svc.Numbers, svc.Inbox, svc.Content, cfg.RefreshInterval, logger)
	auth := NewAuthHandler(svc.Auth, cfg.Cookies, validate, logger)
	admin := NewAdminHandler(svc.Store, svc.Auth, svc.Numbers, svc.Inbox, svc.Content, svc.Sync, svc.Editors, validate, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Streams stay open past the request timeout.
	r.Get("/api/numbers/{number}/stream", public.StreamMessages)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

		views.RegisterRoutes(r)
		r.With(middleware.RequireAdmin(svc.Auth, cfg.Cookies, "/login", logger)).Get("/admin", views.Admin)

		r.Route("/api", func(r chi.Router) {
			public.RegisterRoutes(r)
			r.Route("/auth", auth.RegisterRoutes)
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(svc.Auth, cfg.Cookies, "", logger))
				admin.RegisterRoutes(r)
			})
		})
	})

	r.NotFound(views.NotFound)
	return r, nil
}
