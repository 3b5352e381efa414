package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.LoginAttempts.WithLabelValues(OutcomeInvalid).Inc()
	m.LoginAttempts.WithLabelValues(OutcomeInvalid).Inc()
	m.LoginAttempts.WithLabelValues(OutcomeSuccess).Inc()

	if got := testutil.ToFloat64(m.LoginAttempts.WithLabelValues(OutcomeInvalid)); got != 2 {
		t.Errorf("invalid attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LoginAttempts.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("successful attempts = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SocialRedirects.WithLabelValues("github").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `signin_social_redirects_total{provider="github"} 1`) {
		t.Errorf("metrics output missing social redirect counter:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics output missing Go collector")
	}
}
