package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shindakun/signin/internal/auth"
	"github.com/shindakun/signin/internal/metrics"
	"github.com/shindakun/signin/internal/models"
	"github.com/shindakun/signin/internal/observability"
)

// Messages shown on the login page
const (
	MsgCredentialsRejected = "These credentials do not match our records."
	MsgUpstreamUnavailable = "We could not sign you in right now. Please try again shortly."
	MsgSignedOut           = "You have been signed out."
)

// Deps holds dependencies for HTTP handlers
type Deps struct {
	Sessions      *auth.SessionManager
	Authenticator auth.Authenticator
	Social        *auth.SocialRedirector
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	Routes        models.RouteTable
	Providers     models.ProviderSet
	CSRFFieldName string
	AssetPrefix   string
	// AuthTimeout bounds a single credential check. Zero means no extra bound.
	AuthTimeout time.Duration
}

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	Deps
}

// New creates a new Handlers instance
func New(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Handlers{Deps: deps}
}

// LoginForm renders the login page, consuming any pending flash
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	flash, err := h.Sessions.PopFlash(w, r)
	if err != nil {
		h.logger(r).Warn("Discarding unreadable flash", zap.Error(err))
		flash = auth.Flash{}
	}

	h.renderLogin(w, r, flash, http.StatusOK)
}

// Login validates the submitted form and hands the credentials to the
// authenticator. Every outcome ends in a redirect.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger(r).Warn("Failed to parse login form", zap.Error(err))
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	form := loginForm{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
		Remember: r.PostForm.Get("remember"),
	}
	old := form.oldInput()

	if errs := form.validate(); !errs.Empty() {
		h.Metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		h.back(w, r, auth.Flash{Errors: errs, Old: old})
		return
	}

	ctx := r.Context()
	if h.AuthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.AuthTimeout)
		defer cancel()
	}

	principal, err := h.Authenticator.Authenticate(ctx, auth.Credentials{
		Email:    form.Email,
		Password: form.Password,
		Remember: old.Bool("remember"),
	})
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.Metrics.LoginAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
		h.logger(r).Info("Credentials rejected")
		h.back(w, r, auth.Flash{
			Errors: models.ValidationErrors{"email": {MsgCredentialsRejected}},
			Old:    old,
		})
		return
	case err != nil:
		h.Metrics.LoginAttempts.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		h.logger(r).Error("Authentication failed", zap.Error(err))
		h.back(w, r, auth.Flash{Old: old, Status: MsgUpstreamUnavailable})
		return
	}

	if err := h.Sessions.SetSubject(w, r, principal.Subject, old.Bool("remember")); err != nil {
		h.logger(r).Error("Failed to save session", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.Metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	h.logger(r).Info("Signed in", zap.String("subject", principal.Subject))
	http.Redirect(w, r, h.routeURL(models.RouteHome, "/"), http.StatusSeeOther)
}

// Logout clears the session and returns to the login page with a status message
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.ClearSession(w, r); err != nil {
		// Log error but continue with logout
		h.logger(r).Warn("Error clearing session", zap.Error(err))
	}
	h.back(w, r, auth.Flash{Status: MsgSignedOut})
}

// SocialRedirect sends the browser to the provider named in the URL
func (h *Handlers) SocialRedirect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	err := h.Social.Redirect(w, r, provider)
	switch {
	case errors.Is(err, auth.ErrUnknownProvider):
		h.NotFound(w, r)
	case err != nil:
		h.logger(r).Error("Failed to start social login", zap.String("provider", provider), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		h.Metrics.SocialRedirects.WithLabelValues(provider).Inc()
	}
}

// Home is the landing route after sign-in. Guests are sent to the login page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	if h.Sessions.Subject(r) == "" {
		http.Redirect(w, r, h.routeURL(models.RouteLogin, "/login"), http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Signed in.\n"))
}

// Healthz reports liveness
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// NotFound answers unknown routes
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

// back redirects to the login page carrying f to the next render. When f
// cannot be stored the page is rendered in place so the feedback is not lost.
func (h *Handlers) back(w http.ResponseWriter, r *http.Request, f auth.Flash) {
	if err := h.Sessions.PutFlash(w, r, f); err != nil {
		h.logger(r).Error("Failed to store flash, rendering in place", zap.Error(err))
		h.renderLogin(w, r, f, http.StatusUnprocessableEntity)
		return
	}
	http.Redirect(w, r, h.routeURL(models.RouteLogin, "/login"), http.StatusSeeOther)
}

func (h *Handlers) routeURL(name, fallback string) string {
	u, err := h.Routes.URL(name)
	if err != nil {
		return fallback
	}
	return u
}

func (h *Handlers) logger(r *http.Request) *zap.Logger {
	if l, ok := observability.Lookup(r.Context()); ok {
		return l
	}
	return h.Logger
}
