package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/shindakun/signin/internal/auth"
	"github.com/shindakun/signin/internal/observability"
)

// ExpiredFormStatus is flashed when a login form is posted with a stale token.
const ExpiredFormStatus = "Your session has expired. Please try signing in again."

// CSRFOptions configures CSRFProtection.
type CSRFOptions struct {
	Secret    []byte
	Secure    bool
	FieldName string
	// OnFailure handles requests whose token is missing or invalid.
	OnFailure http.Handler
}

// CSRFProtection creates a CSRF protection middleware using gorilla/csrf.
// The token itself is opaque to the rest of the service; handlers only copy
// csrf.Token(r) into the page.
func CSRFProtection(opts CSRFOptions) func(http.Handler) http.Handler {
	fieldName := opts.FieldName
	if fieldName == "" {
		fieldName = "csrf_token"
	}
	onFailure := opts.OnFailure
	if onFailure == nil {
		onFailure = http.HandlerFunc(CSRFFailureHandler)
	}

	protect := csrf.Protect(
		opts.Secret,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName(fieldName),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.ErrorHandler(onFailure),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if opts.Secure {
			return protected
		}
		// Without TLS the Referer checks that gorilla/csrf applies to HTTPS
		// requests cannot pass.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFFailureHandler rejects the request with a plain 403.
func CSRFFailureHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "CSRF token validation failed. Please refresh the page and try again.", http.StatusForbidden)
}

// ExpiredFormHandler sends a browser whose login form carried a stale token
// back to the form with a status message instead of a bare 403. Other
// requests get CSRFFailureHandler.
func ExpiredFormHandler(sessions *auth.SessionManager, loginPath, loginURL string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := observability.FromContext(r.Context())
		logger.Warn("csrf validation failed", zap.Error(csrf.FailureReason(r)))

		if r.Method != http.MethodPost || r.URL.Path != loginPath {
			CSRFFailureHandler(w, r)
			return
		}
		if err := sessions.PutFlash(w, r, auth.Flash{Status: ExpiredFormStatus}); err != nil {
			logger.Error("failed to store flash", zap.Error(err))
		}
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
	})
}
