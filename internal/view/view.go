// Package view renders the sign-in page.
//
// Render is a pure function of models.LoginPageData: it reads no session,
// request or global state, and writes nothing unless rendering succeeded.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shindakun/signin/internal/models"
)

// ErrMissingRoute is returned when a required route is absent from the route
// table. It is a configuration error, not a per-request one.
var ErrMissingRoute = models.ErrMissingRoute

// DefaultAssetPrefix is where the page expects Assets to be mounted.
const DefaultAssetPrefix = "/static/"

const (
	pageTitle            = "Sign in"
	defaultCSRFFieldName = "csrf_token"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Status messages are plain text; markup is stripped rather than shown escaped.
var statusPolicy = bluemonday.StrictPolicy()

type field struct {
	Value   string
	Error   string
	Invalid bool
}

type socialLink struct {
	ID    string
	Label string
	Href  string
}

// page is the template's view of LoginPageData with every decision already made.
type page struct {
	Title         string
	AssetPrefix   string
	ShowStatus    bool
	Status        string
	LoginURL      string
	ForgotLink    bool
	ForgotURL     string
	RegisterLink  bool
	RegisterURL   string
	CSRFToken     string
	CSRFFieldName string
	Email         field
	Password      field
	Remember      bool
	Social        []socialLink
}

// Render writes the sign-in page for data to w.
func Render(w io.Writer, data models.LoginPageData) error {
	p, err := build(data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "base", p); err != nil {
		return fmt.Errorf("failed to execute login template: %w", err)
	}

	_, err = buf.WriteTo(w)
	return err
}

// CheckRoutes reports the first route the page would fail to resolve for the
// given providers. Call it at startup so a bad route table never reaches a
// request.
func CheckRoutes(routes models.RouteTable, providers models.ProviderSet) error {
	_, err := build(models.LoginPageData{Routes: routes, Providers: providers})
	return err
}

func build(data models.LoginPageData) (page, error) {
	loginURL, err := data.Routes.URL(models.RouteLogin)
	if err != nil {
		return page{}, err
	}

	p := page{
		Title:         pageTitle,
		AssetPrefix:   data.AssetPrefix,
		ShowStatus:    data.Status != "",
		Status:        sanitizeStatus(data.Status),
		LoginURL:      loginURL,
		CSRFToken:     data.CSRFToken,
		CSRFFieldName: data.CSRFFieldName,
		Email: field{
			Value:   data.Old.Get("email"),
			Error:   data.Errors.First("email"),
			Invalid: data.Errors.Has("email"),
		},
		// Never echo a submitted password back.
		Password: field{
			Error:   data.Errors.First("password"),
			Invalid: data.Errors.Has("password"),
		},
		Remember: data.Old.Bool("remember"),
	}
	if p.AssetPrefix == "" {
		p.AssetPrefix = DefaultAssetPrefix
	}
	if p.CSRFFieldName == "" {
		p.CSRFFieldName = defaultCSRFFieldName
	}

	// Presence in the table decides, even when the URL is empty.
	if p.ForgotLink = data.Routes.Has(models.RoutePasswordRequest); p.ForgotLink {
		if p.ForgotURL, err = data.Routes.URL(models.RoutePasswordRequest); err != nil {
			return page{}, err
		}
	}
	if p.RegisterLink = data.Routes.Has(models.RouteRegister); p.RegisterLink {
		if p.RegisterURL, err = data.Routes.URL(models.RouteRegister); err != nil {
			return page{}, err
		}
	}

	for _, provider := range data.Providers.Ordered() {
		href, err := data.Routes.URL(models.RouteSocialRedirect, string(provider))
		if err != nil {
			return page{}, err
		}
		p.Social = append(p.Social, socialLink{
			ID:    string(provider),
			Label: provider.Label(),
			Href:  href,
		})
	}

	return p, nil
}

func sanitizeStatus(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(statusPolicy.Sanitize(s)))
}
