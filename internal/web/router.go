// Package web assembles the sign-in service's HTTP surface.
package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/shindakun/signin/internal/auth"
	"github.com/shindakun/signin/internal/config"
	"github.com/shindakun/signin/internal/metrics"
	"github.com/shindakun/signin/internal/models"
	"github.com/shindakun/signin/internal/view"
	"github.com/shindakun/signin/internal/web/handlers"
	webmiddleware "github.com/shindakun/signin/internal/web/middleware"
)

const defaultRequestTimeout = 60 * time.Second

// App holds the wired collaborators behind the router.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *auth.SessionManager
	metrics  *metrics.Metrics
	handlers *handlers.Handlers
}

// NewApp wires sessions, authentication, social login and metrics from cfg.
// A nil authenticator means credentials are checked against
// cfg.Auth.UpstreamURL. The route table is checked once here so a bad
// configuration fails at startup rather than on the first request.
func NewApp(cfg *config.Config, logger *zap.Logger, authenticator auth.Authenticator) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	routes := cfg.RouteTable()
	providers := cfg.Providers()
	if err := view.CheckRoutes(routes, providers); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	sessions := auth.InitSessions(cfg.Session.Secret, cfg.Session.MaxAge, cfg.CookieSecure(), cfg.CookieSameSite())

	if authenticator == nil {
		authenticator = auth.NewUpstreamAuthenticator(cfg.Auth.UpstreamURL, cfg.Auth.Timeout, cfg.Auth.Retries, logger)
	}

	social := auth.NewSocialRedirector(socialConfigs(cfg), sessions)
	m := metrics.New()

	h := handlers.New(handlers.Deps{
		Sessions:      sessions,
		Authenticator: authenticator,
		Social:        social,
		Metrics:       m,
		Logger:        logger,
		Routes:        routes,
		Providers:     providers,
		CSRFFieldName: cfg.Server.Security.CSRFFieldName,
		AssetPrefix:   view.DefaultAssetPrefix,
		AuthTimeout:   cfg.Auth.Timeout,
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		metrics:  m,
		handlers: h,
	}, nil
}

func socialConfigs(cfg *config.Config) map[models.Provider]auth.ProviderConfig {
	out := make(map[models.Provider]auth.ProviderConfig)
	for _, p := range models.AllProviders() {
		svc := cfg.Service(p)
		if svc == nil {
			continue
		}
		redirectURL := svc.RedirectURL
		if redirectURL == "" {
			redirectURL = cfg.GetBaseURL() + "/auth/" + string(p) + "/callback"
		}
		out[p] = auth.ProviderConfig{
			ClientID:     svc.ClientID,
			ClientSecret: svc.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       svc.Scopes,
		}
	}
	return out
}

// Metrics returns the registry-backed counters used by the handlers.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Router builds the HTTP handler for the service.
func (a *App) Router() http.Handler {
	cfg := a.cfg
	h := a.handlers
	routes := cfg.Routes
	loginPath := routes[models.RouteLogin]
	homeURL := routeOr(routes, models.RouteHome, "/")

	timeout := cfg.Server.WriteTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(webmiddleware.LoggingMiddleware(a.logger))
	r.Use(webmiddleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(webmiddleware.SecurityHeaders(cfg))
	r.Use(webmiddleware.LimitRequestBody(cfg.Server.Security.MaxRequestBytes))

	// Operational endpoints
	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", a.metrics.Handler())

	// Static files
	r.Handle(view.DefaultAssetPrefix+"*", http.StripPrefix(view.DefaultAssetPrefix, view.Assets()))

	// Pages carrying flash state or a CSRF token
	r.Group(func(r chi.Router) {
		if cfg.Server.Security.CSRFEnabled {
			r.Use(webmiddleware.CSRFProtection(webmiddleware.CSRFOptions{
				Secret:    cfg.CSRFKey(),
				Secure:    cfg.IsHTTPS(),
				FieldName: cfg.Server.Security.CSRFFieldName,
				OnFailure: webmiddleware.ExpiredFormHandler(a.sessions, loginPath, loginPath),
			}))
		}
		r.Use(webmiddleware.NoStore)

		// Guest-only routes
		r.Group(func(r chi.Router) {
			r.Use(webmiddleware.RedirectIfAuthenticated(a.sessions, homeURL))
			r.Get(loginPath, h.LoginForm)
			r.Post(loginPath, h.Login)
			r.Get(routes[models.RouteSocialRedirect], h.SocialRedirect)
		})

		r.Post(routes[models.RouteLogout], h.Logout)

		if servesHome(routes) {
			r.Get(homeURL, h.Home)
		}
	})

	// 404 handler
	r.NotFound(h.NotFound)

	a.logger.Info("Routes mounted",
		zap.String("login", loginPath),
		zap.String("logout", routes[models.RouteLogout]),
		zap.String("social", routes[models.RouteSocialRedirect]),
		zap.Bool("csrf", cfg.Server.Security.CSRFEnabled),
	)

	return otelhttp.NewHandler(r, "signin",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
		}),
	)
}

// servesHome reports whether home is a local path not claimed by another route.
func servesHome(routes map[string]string) bool {
	home := routes[models.RouteHome]
	if !strings.HasPrefix(home, "/") || strings.Contains(home, "{") {
		return false
	}
	for _, name := range []string{models.RouteLogin, models.RouteLogout} {
		if routes[name] == home {
			return false
		}
	}
	return home != "/healthz" && home != "/metrics" && !strings.HasPrefix(home, view.DefaultAssetPrefix)
}

func routeOr(routes map[string]string, name, fallback string) string {
	if v := routes[name]; v != "" {
		return v
	}
	return fallback
}

