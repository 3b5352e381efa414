package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/shindakun/signin/internal/observability"
)

var (
	// ErrInvalidCredentials means the upstream rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUpstream means the credential check could not be completed.
	ErrUpstream = errors.New("authentication service unavailable")
)

// Credentials is what the login form submits.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Principal identifies a signed-in user.
type Principal struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

// Authenticator verifies credentials. Verification itself lives outside this
// service.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
}

// UpstreamAuthenticator posts credentials as JSON to an external endpoint.
// 200 with a principal body accepts, 401/403/422 reject, anything else is an
// upstream failure.
type UpstreamAuthenticator struct {
	client   *retryablehttp.Client
	endpoint string
}

// NewUpstreamAuthenticator creates an authenticator for endpoint. Connection
// errors and 5xx responses are retried up to retries times.
func NewUpstreamAuthenticator(endpoint string, timeout time.Duration, retries int, logger *zap.Logger) *UpstreamAuthenticator {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = observability.NewLeveledLogger(logger)

	return &UpstreamAuthenticator{
		client:   client,
		endpoint: endpoint,
	}
}

// Authenticate implements Authenticator.
func (a *UpstreamAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*Principal, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidCredentials
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	var principal Principal
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&principal); err != nil {
		return nil, fmt.Errorf("%w: invalid response body: %v", ErrUpstream, err)
	}
	if principal.Subject == "" {
		return nil, fmt.Errorf("%w: response has no subject", ErrUpstream)
	}
	if principal.Email == "" {
		principal.Email = creds.Email
	}
	return &principal, nil
}
