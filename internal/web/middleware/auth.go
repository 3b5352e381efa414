package middleware

import (
	"net/http"

	"github.com/shindakun/signin/internal/auth"
)

// RedirectIfAuthenticated sends visitors who already have a signed-in session
// to home instead of showing them the login form again.
func RedirectIfAuthenticated(sessionManager *auth.SessionManager, home string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessionManager.Subject(r) != "" {
				http.Redirect(w, r, home, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
