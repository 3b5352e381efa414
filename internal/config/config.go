package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shindakun/signin/internal/models"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Session  SessionConfig     `yaml:"session"`
	Routes   map[string]string `yaml:"routes"`
	Services ServicesConfig    `yaml:"services"`
	Auth     AuthConfig        `yaml:"auth"`
	Log      LogConfig         `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int            `yaml:"port"`
	Host            string         `yaml:"host"`
	BaseURL         string         `yaml:"base_url"` // Optional: Override for OAuth redirect URLs (e.g., https://your-domain.com)
	ReadTimeout     time.Duration  `yaml:"read_timeout"`
	WriteTimeout    time.Duration  `yaml:"write_timeout"`
	IdleTimeout     time.Duration  `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	Security        SecurityConfig `yaml:"security"`
}

// SecurityConfig contains security-related settings
type SecurityConfig struct {
	CSRFEnabled     bool                  `yaml:"csrf_enabled"`
	CSRFFieldName   string                `yaml:"csrf_field_name"`
	CSRFSecret      string                `yaml:"csrf_secret"`
	MaxRequestBytes int64                 `yaml:"max_request_bytes"`
	Headers         SecurityHeadersConfig `yaml:"headers"`
}

// SecurityHeadersConfig contains HTTP security header settings
type SecurityHeadersConfig struct {
	XFrameOptions           string `yaml:"x_frame_options"`
	XContentTypeOptions     string `yaml:"x_content_type_options"`
	ReferrerPolicy          string `yaml:"referrer_policy"`
	ContentSecurityPolicy   string `yaml:"content_security_policy"`
	StrictTransportSecurity string `yaml:"strict_transport_security"`
}

// SessionConfig contains the cookie settings for flash and sign-in state
type SessionConfig struct {
	Secret         string `yaml:"secret"`
	MaxAge         int    `yaml:"max_age"`
	CookieSecure   string `yaml:"cookie_secure"`   // "auto", "true", "false"
	CookieSameSite string `yaml:"cookie_samesite"` // "strict", "lax", "none"
}

// ServicesConfig holds the social-login provider credentials. A nil entry
// means the provider is not configured at all.
type ServicesConfig struct {
	Google   *ServiceConfig `yaml:"google"`
	GitHub   *ServiceConfig `yaml:"github"`
	Facebook *ServiceConfig `yaml:"facebook"`
}

// ServiceConfig contains OAuth client settings for one provider
type ServiceConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// AuthConfig points at the service that verifies credentials
type AuthConfig struct {
	UpstreamURL string        `yaml:"upstream_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default route paths; any of them can be overridden under routes:.
var defaultRoutes = map[string]string{
	models.RouteLogin:          "/login",
	models.RouteLogout:         "/logout",
	models.RouteHome:           "/",
	models.RouteSocialRedirect: "/auth/{provider}/redirect",
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if set
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	cfg.fillRoutes()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every optional setting filled in.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Security: SecurityConfig{
				CSRFEnabled:     true,
				CSRFFieldName:   "csrf_token",
				MaxRequestBytes: 64 << 10,
				Headers: SecurityHeadersConfig{
					XFrameOptions:           "DENY",
					XContentTypeOptions:     "nosniff",
					ReferrerPolicy:          "strict-origin-when-cross-origin",
					ContentSecurityPolicy:   "default-src 'self'; form-action 'self'; frame-ancestors 'none'",
					StrictTransportSecurity: "max-age=31536000; includeSubDomains",
				},
			},
		},
		Session: SessionConfig{
			MaxAge:         7 * 24 * 60 * 60,
			CookieSecure:   "auto",
			CookieSameSite: "lax",
		},
		Auth: AuthConfig{
			Timeout: 10 * time.Second,
			Retries: 2,
		},
		Log: LogConfig{Level: "info"},
	}
}

func (c *Config) fillRoutes() {
	if c.Routes == nil {
		c.Routes = make(map[string]string, len(defaultRoutes))
	}
	for name, path := range defaultRoutes {
		if _, ok := c.Routes[name]; !ok {
			c.Routes[name] = path
		}
	}
}

// Validate checks that all required configuration fields are set
func (c *Config) Validate() error {
	// Session validation
	if c.Session.Secret == "" || strings.Contains(c.Session.Secret, "${") {
		return fmt.Errorf("session.secret is required (set SESSION_SECRET environment variable)")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 characters")
	}
	if c.Server.Security.CSRFEnabled && c.Server.Security.CSRFSecret != "" && len(c.Server.Security.CSRFSecret) != 32 {
		return fmt.Errorf("server.security.csrf_secret must be exactly 32 characters")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Route validation; served routes must be local paths
	for _, name := range []string{models.RouteLogin, models.RouteLogout, models.RouteSocialRedirect} {
		if !strings.HasPrefix(c.Routes[name], "/") {
			return fmt.Errorf("routes.%s must be a path starting with /", name)
		}
	}
	if !strings.Contains(c.Routes[models.RouteSocialRedirect], "{provider}") {
		return fmt.Errorf("routes.%s must contain a {provider} placeholder", models.RouteSocialRedirect)
	}
	if c.Routes[models.RouteRegister] == "" {
		return fmt.Errorf("routes.%s is required", models.RouteRegister)
	}

	// Auth validation
	if c.Auth.UpstreamURL == "" {
		return fmt.Errorf("auth.upstream_url is required")
	}
	if c.Auth.Retries < 0 {
		return fmt.Errorf("auth.retries must not be negative")
	}

	for name, svc := range c.Services.byProvider() {
		if svc != nil && svc.ClientID != "" && svc.ClientSecret == "" {
			return fmt.Errorf("services.%s.client_secret is required when client_id is set", name)
		}
	}

	return nil
}

func (s ServicesConfig) byProvider() map[models.Provider]*ServiceConfig {
	return map[models.Provider]*ServiceConfig{
		models.ProviderGoogle:   s.Google,
		models.ProviderGitHub:   s.GitHub,
		models.ProviderFacebook: s.Facebook,
	}
}

// Service returns the settings for p, or nil when p is not configured.
func (c *Config) Service(p models.Provider) *ServiceConfig {
	return c.Services.byProvider()[p]
}

// Providers returns the social-login providers that can actually be used.
// A provider block that is present but has no client_id is not enabled; see
// UnconfiguredProviders.
func (c *Config) Providers() models.ProviderSet {
	set := models.ProviderSet{}
	for p, svc := range c.Services.byProvider() {
		if svc != nil && svc.ClientID != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// UnconfiguredProviders lists providers whose block is present but empty.
func (c *Config) UnconfiguredProviders() []models.Provider {
	var out []models.Provider
	for _, p := range models.AllProviders() {
		if svc := c.Service(p); svc != nil && svc.ClientID == "" {
			out = append(out, p)
		}
	}
	return out
}

// RouteTable returns the routes the login page resolves against.
func (c *Config) RouteTable() models.RouteTable {
	table := make(models.RouteTable, len(c.Routes))
	for name, path := range c.Routes {
		table[name] = path
	}
	return table
}

// GetAddr returns the full server address (host:port)
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetBaseURL returns the public base URL
// Uses base_url if set, otherwise constructs from host:port
func (c *Config) GetBaseURL() string {
	if c.Server.BaseURL != "" {
		return strings.TrimSuffix(c.Server.BaseURL, "/")
	}
	return fmt.Sprintf("http://%s", c.GetAddr())
}

// IsHTTPS returns true if the base URL uses HTTPS
func (c *Config) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(c.GetBaseURL()), "https://")
}

// CookieSecure resolves session.cookie_secure, where "auto" follows the base URL scheme.
func (c *Config) CookieSecure() bool {
	switch strings.ToLower(c.Session.CookieSecure) {
	case "true":
		return true
	case "false":
		return false
	default:
		return c.IsHTTPS()
	}
}

// CookieSameSite resolves session.cookie_samesite, defaulting to Lax.
func (c *Config) CookieSameSite() http.SameSite {
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// CSRFKey returns the 32-byte key for CSRF tokens, derived from the session
// secret when no dedicated key is configured.
func (c *Config) CSRFKey() []byte {
	if c.Server.Security.CSRFSecret != "" {
		return []byte(c.Server.Security.CSRFSecret)
	}
	return []byte(c.Session.Secret)[:32]
}
