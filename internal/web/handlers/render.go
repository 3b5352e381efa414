package handlers

import (
	"bytes"
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/shindakun/signin/internal/auth"
	"github.com/shindakun/signin/internal/models"
	"github.com/shindakun/signin/internal/view"
)

// pageData assembles the view input for the current request
func (h *Handlers) pageData(r *http.Request, flash auth.Flash) models.LoginPageData {
	return models.LoginPageData{
		Errors:        flash.Errors,
		Old:           flash.Old,
		Status:        flash.Status,
		Providers:     h.Providers,
		Routes:        h.Routes,
		CSRFToken:     csrf.Token(r),
		CSRFFieldName: h.CSRFFieldName,
		AssetPrefix:   h.AssetPrefix,
	}
}

// renderLogin renders the login page with status. Nothing reaches the client
// when rendering fails.
func (h *Handlers) renderLogin(w http.ResponseWriter, r *http.Request, flash auth.Flash, status int) {
	var buf bytes.Buffer
	if err := view.Render(&buf, h.pageData(r, flash)); err != nil {
		h.Metrics.PageRenders.WithLabelValues("error").Inc()
		h.logger(r).Error("Failed to render login page", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.Metrics.PageRenders.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
