package middleware

import (
	"errors"
	"mime"
	"net/http"

	"github.com/shindakun/signin/internal/config"
)

// SecurityHeaders creates middleware that adds HTTP security headers to all responses
func SecurityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	headers := cfg.Server.Security.Headers
	hsts := cfg.IsHTTPS() && headers.StrictTransportSecurity != ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			setIf(h, "X-Frame-Options", headers.XFrameOptions)
			setIf(h, "X-Content-Type-Options", headers.XContentTypeOptions)
			setIf(h, "Referrer-Policy", headers.ReferrerPolicy)
			setIf(h, "Content-Security-Policy", headers.ContentSecurityPolicy)

			// Only meaningful when served over TLS
			if hsts {
				h.Set("Strict-Transport-Security", headers.StrictTransportSecurity)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// NoStore marks responses as uncacheable. Pages carrying flash state or a
// CSRF token must never be served from a cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// LimitRequestBody caps request bodies at maxBytes. Zero or less disables the limit.
// Form posts are parsed here so an oversized form is answered with 413 before
// anything downstream (CSRF included) reads it and loses the error.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			if isURLEncodedForm(r) {
				if err := r.ParseForm(); err != nil {
					var maxErr *http.MaxBytesError
					if errors.As(err, &maxErr) {
						http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
						return
					}
					http.Error(w, "Invalid request", http.StatusBadRequest)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isURLEncodedForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded"
}
