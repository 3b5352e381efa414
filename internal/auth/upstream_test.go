package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestUpstreamAuthenticator(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch creds.Email {
		case "ada@example.com":
			if creds.Password != "correct horse" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(Principal{Subject: "user-42"})
		case "locked@example.com":
			w.WriteHeader(http.StatusForbidden)
		case "nosubject@example.com":
			json.NewEncoder(w).Encode(map[string]string{"email": creds.Email})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	a := NewUpstreamAuthenticator(srv.URL, 2*time.Second, 0, zap.NewNop())
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		p, err := a.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "correct horse"})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if p.Subject != "user-42" || p.Email != "ada@example.com" {
			t.Errorf("principal = %+v", p)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := a.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "nope"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		_, err := a.Authenticate(ctx, Credentials{Email: "locked@example.com", Password: "x"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := a.Authenticate(ctx, Credentials{Email: "nosubject@example.com", Password: "x"})
		if !errors.Is(err, ErrUpstream) {
			t.Errorf("error = %v, want ErrUpstream", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		_, err := a.Authenticate(ctx, Credentials{Email: "boom@example.com", Password: "x"})
		if !errors.Is(err, ErrUpstream) {
			t.Errorf("error = %v, want ErrUpstream", err)
		}
	})
}

func TestUpstreamAuthenticatorRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Principal{Subject: "user-1", Email: "a@b.c"})
	}))
	defer srv.Close()

	a := NewUpstreamAuthenticator(srv.URL, time.Second, 3, zap.NewNop())
	a.client.RetryWaitMin = time.Millisecond
	a.client.RetryWaitMax = 5 * time.Millisecond

	p, err := a.Authenticate(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.Subject != "user-1" {
		t.Errorf("subject = %q", p.Subject)
	}
	if calls.Load() != 3 {
		t.Errorf("upstream called %d times, want 3", calls.Load())
	}
}

func TestUpstreamAuthenticatorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := NewUpstreamAuthenticator(url, 200*time.Millisecond, 0, zap.NewNop())
	_, err := a.Authenticate(context.Background(), Credentials{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}
