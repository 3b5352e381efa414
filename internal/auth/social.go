package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/shindakun/signin/internal/models"
)

// ErrUnknownProvider is returned for a provider that is not enabled.
var ErrUnknownProvider = errors.New("unknown social provider")

// ProviderConfig holds OAuth client settings for one provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

var defaultScopes = map[models.Provider][]string{
	models.ProviderGoogle:   {"openid", "email", "profile"},
	models.ProviderGitHub:   {"read:user", "user:email"},
	models.ProviderFacebook: {"email", "public_profile"},
}

var endpoints = map[models.Provider]oauth2.Endpoint{
	models.ProviderGoogle:   google.Endpoint,
	models.ProviderGitHub:   github.Endpoint,
	models.ProviderFacebook: facebook.Endpoint,
}

// SocialRedirector sends the browser to a provider's consent page. The
// callback and token exchange are handled elsewhere.
type SocialRedirector struct {
	configs  map[models.Provider]*oauth2.Config
	sessions *SessionManager
}

// NewSocialRedirector builds OAuth client configs for every provider in configs.
func NewSocialRedirector(configs map[models.Provider]ProviderConfig, sessions *SessionManager) *SocialRedirector {
	s := &SocialRedirector{
		configs:  make(map[models.Provider]*oauth2.Config, len(configs)),
		sessions: sessions,
	}
	for p, c := range configs {
		endpoint, ok := endpoints[p]
		if !ok || c.ClientID == "" {
			continue
		}
		scopes := c.Scopes
		if len(scopes) == 0 {
			scopes = defaultScopes[p]
		}
		s.configs[p] = &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		}
	}
	return s
}

// Providers returns the set of providers the redirector can serve.
func (s *SocialRedirector) Providers() models.ProviderSet {
	set := make(models.ProviderSet, len(s.configs))
	for p := range s.configs {
		set[p] = struct{}{}
	}
	return set
}

// AuthCodeURL returns the consent URL for provider with the given state.
func (s *SocialRedirector) AuthCodeURL(provider, state string) (string, error) {
	p, ok := models.ParseProvider(provider)
	if !ok {
		return "", ErrUnknownProvider
	}
	cfg, ok := s.configs[p]
	if !ok {
		return "", ErrUnknownProvider
	}
	return cfg.AuthCodeURL(state), nil
}

// Redirect records a fresh state on the session and redirects to the
// provider's consent page.
func (s *SocialRedirector) Redirect(w http.ResponseWriter, r *http.Request, provider string) error {
	state := strings.ReplaceAll(uuid.NewString(), "-", "")
	target, err := s.AuthCodeURL(provider, state)
	if err != nil {
		return err
	}
	p, _ := models.ParseProvider(provider)
	if err := s.sessions.SetOAuthState(w, r, p, state); err != nil {
		return err
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
	return nil
}
