package view

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/shindakun/signin/internal/models"
)

func baseRoutes() models.RouteTable {
	return models.RouteTable{
		models.RouteLogin:          "/login",
		models.RouteRegister:       "/register",
		models.RouteSocialRedirect: "/auth/{provider}/redirect",
	}
}

func render(t *testing.T, data models.LoginPageData) *goquery.Document {
	t.Helper()

	if data.Routes == nil {
		data.Routes = baseRoutes()
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, data))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err, "parse html")
	return doc
}

func TestEmailFieldWithoutErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]models.ValidationErrors{
		"nil":            nil,
		"empty":          {},
		"other field":    {"password": {"The password field is required."}},
		"empty messages": {"email": {}},
	}
	for name, errs := range cases {
		errs := errs
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			doc := render(t, models.LoginPageData{Errors: errs})

			email := doc.Find("input#email")
			require.Equal(t, 1, email.Length())
			require.Equal(t, "false", email.AttrOr("aria-invalid", ""))
			_, described := email.Attr("aria-describedby")
			require.False(t, described, "valid email must not reference an error element")
			require.False(t, email.HasClass("is-invalid"))
			require.Zero(t, doc.Find("#email-error").Length())
		})
	}
}

func TestEmailFieldShowsFirstErrorOnly(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{
		Errors: models.ValidationErrors{
			"email": {"The email field must be a valid email address.", "second message"},
		},
	})

	email := doc.Find("input#email")
	require.Equal(t, "true", email.AttrOr("aria-invalid", ""))
	require.Equal(t, "email-error", email.AttrOr("aria-describedby", ""))
	require.True(t, email.HasClass("is-invalid"))
	require.True(t, email.HasClass("form-control"))

	msg := doc.Find("#email-error")
	require.Equal(t, 1, msg.Length())
	require.Equal(t, "The email field must be a valid email address.", strings.TrimSpace(msg.Text()))
	require.NotContains(t, doc.Text(), "second message")

	// The password field stays valid.
	require.Equal(t, "false", doc.Find("input#password").AttrOr("aria-invalid", ""))
	require.Zero(t, doc.Find("#password-error").Length())
}

func TestPasswordFieldErrors(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{
		Errors: models.ValidationErrors{"password": {"The password field is required.", "ignored"}},
	})

	pwd := doc.Find("input#password")
	require.Equal(t, "true", pwd.AttrOr("aria-invalid", ""))
	require.Equal(t, "password-error", pwd.AttrOr("aria-describedby", ""))
	require.True(t, pwd.HasClass("is-invalid"))
	require.Equal(t, "The password field is required.", strings.TrimSpace(doc.Find("#password-error").Text()))
}

func TestPasswordNeverPrefilled(t *testing.T) {
	t.Parallel()

	for _, old := range []models.OldInput{
		nil,
		{"password": "hunter2"},
		{"email": "a@example.com", "password": "s3cret", "remember": "on"},
	} {
		doc := render(t, models.LoginPageData{Old: old})
		pwd := doc.Find("input#password")
		require.Equal(t, "password", pwd.AttrOr("type", ""))
		_, hasValue := pwd.Attr("value")
		require.False(t, hasValue, "password input must not carry a value attribute")
		if v := old.Get("password"); v != "" {
			require.NotContains(t, doc.Text()+mustHTML(t, doc), v)
		}
	}
}

func TestEmailPrefilledFromOldInput(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{Old: models.OldInput{"email": `ada"<script>@example.com`}})
	require.Equal(t, `ada"<script>@example.com`, doc.Find("input#email").AttrOr("value", "missing"))
	require.Zero(t, doc.Find("form script").Length())

	doc = render(t, models.LoginPageData{})
	value, ok := doc.Find("input#email").Attr("value")
	require.True(t, ok)
	require.Equal(t, "", value)
}

func TestRememberCheckbox(t *testing.T) {
	t.Parallel()

	cases := []struct {
		old     models.OldInput
		checked bool
	}{
		{nil, false},
		{models.OldInput{"remember": ""}, false},
		{models.OldInput{"remember": "0"}, false},
		{models.OldInput{"remember": "on"}, true},
		{models.OldInput{"remember": "1"}, true},
	}
	for _, tc := range cases {
		doc := render(t, models.LoginPageData{Old: tc.old})
		_, checked := doc.Find(`input[name="remember"]`).Attr("checked")
		require.Equal(t, tc.checked, checked, "old=%v", tc.old)
	}
}

func TestForgotPasswordLink(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{})
	require.Zero(t, doc.Find("a.forgot-password").Length())

	routes := baseRoutes()
	routes[models.RoutePasswordRequest] = "/password/reset"
	doc = render(t, models.LoginPageData{Routes: routes})
	link := doc.Find("a.forgot-password")
	require.Equal(t, 1, link.Length())
	require.Equal(t, "/password/reset", link.AttrOr("href", ""))

	// A present key with an empty URL still shows the link.
	routes[models.RoutePasswordRequest] = ""
	doc = render(t, models.LoginPageData{Routes: routes})
	require.Equal(t, 1, doc.Find("a.forgot-password").Length())
}

func TestSocialProviders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		providers models.ProviderSet
		want      []string
	}{
		{"none", models.NewProviderSet(), nil},
		{"nil", nil, nil},
		{"github only", models.NewProviderSet("github"), []string{"github"}},
		{"insertion order ignored", models.NewProviderSet("facebook", "google"), []string{"google", "facebook"}},
		{"all", models.NewProviderSet("facebook", "github", "google"), []string{"google", "github", "facebook"}},
		{"unknown dropped", models.NewProviderSet("twitter", "GitHub"), []string{"github"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := render(t, models.LoginPageData{Providers: tc.providers})

			if len(tc.want) == 0 {
				require.Zero(t, doc.Find(".socials").Length())
				require.Zero(t, doc.Find(".divider").Length())
				return
			}

			var got []string
			doc.Find(".socials a.btn-social").Each(func(_ int, s *goquery.Selection) {
				id := s.AttrOr("data-provider", "")
				got = append(got, id)
				require.Equal(t, "/auth/"+id+"/redirect", s.AttrOr("href", ""))
			})
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSocialButtonLabels(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{Providers: models.NewProviderSet("github")})
	buttons := doc.Find(".socials a.btn-social")
	require.Equal(t, 1, buttons.Length())
	require.Equal(t, "GitHub", strings.TrimSpace(buttons.Text()))
}

func TestStatusBanner(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{})
	require.Zero(t, doc.Find("#status-banner").Length())

	doc = render(t, models.LoginPageData{Status: "You have been signed out."})
	banner := doc.Find("#status-banner")
	require.Equal(t, 1, banner.Length())
	require.Equal(t, "status", banner.AttrOr("role", ""))
	require.Equal(t, "You have been signed out.", strings.TrimSpace(banner.Find(".alert-text").Text()))
	require.Equal(t, 1, banner.Find(`[data-dismiss="status"]`).Length())

	// Status banner precedes the form.
	require.Zero(t, doc.Find("form #status-banner").Length())
}

func TestStatusMarkupStripped(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{Status: `Password reset <b>done</b> & "ready"<script>alert(1)</script>`})
	banner := doc.Find("#status-banner .alert-text")
	require.Zero(t, banner.Find("b, script").Length())
	require.Equal(t, `Password reset done & "ready"`, strings.TrimSpace(banner.Text()))

	// Any non-empty status gets a banner, even once markup and whitespace are gone.
	for _, status := range []string{"<i></i>", "   "} {
		doc = render(t, models.LoginPageData{Status: status})
		require.Equal(t, 1, doc.Find("#status-banner").Length(), "status %q", status)
		require.Empty(t, strings.TrimSpace(doc.Find("#status-banner .alert-text").Text()))
	}
}

func TestFormTargetsAndCSRF(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{CSRFToken: "opaque+token/=="})
	form := doc.Find("form.auth-form")
	require.Equal(t, "POST", strings.ToUpper(form.AttrOr("method", "")))
	require.Equal(t, "/login", form.AttrOr("action", ""))

	hidden := form.Find(`input[type="hidden"][name="csrf_token"]`)
	require.Equal(t, 1, hidden.Length())
	require.Equal(t, "opaque+token/==", hidden.AttrOr("value", ""))

	require.Equal(t, 1, form.Find(`button[type="submit"]`).Length())
	require.Equal(t, "/register", doc.Find("a.register").AttrOr("href", ""))

	doc = render(t, models.LoginPageData{CSRFToken: "x", CSRFFieldName: "gorilla.csrf.Token"})
	require.Equal(t, 1, doc.Find(`input[name="gorilla.csrf.Token"]`).Length())

	doc = render(t, models.LoginPageData{})
	require.Zero(t, doc.Find(`input[type="hidden"]`).Length())
}

func TestAssetPrefix(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{})
	require.Equal(t, "/static/login.js", doc.Find("script").AttrOr("src", ""))

	doc = render(t, models.LoginPageData{AssetPrefix: "/assets/v2/"})
	require.Equal(t, "/assets/v2/login.css", doc.Find(`link[rel="stylesheet"]`).AttrOr("href", ""))
}

func TestRegisterLinkOptional(t *testing.T) {
	t.Parallel()

	doc := render(t, models.LoginPageData{Routes: models.RouteTable{models.RouteLogin: "/login"}})
	require.Zero(t, doc.Find(".signup-note").Length())

	doc = render(t, models.LoginPageData{Routes: models.RouteTable{models.RouteLogin: "/login", models.RouteRegister: ""}})
	require.Equal(t, 1, doc.Find(".signup-note a.register").Length())
}

func TestMissingLoginRoute(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, models.LoginPageData{Routes: models.RouteTable{models.RouteRegister: "/register"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingRoute))
	require.Zero(t, buf.Len(), "nothing is written when rendering fails")
}

func TestMissingSocialRoute(t *testing.T) {
	t.Parallel()

	routes := models.RouteTable{models.RouteLogin: "/login"}
	var buf bytes.Buffer
	err := Render(&buf, models.LoginPageData{Routes: routes, Providers: models.NewProviderSet("google")})
	require.ErrorIs(t, err, ErrMissingRoute)

	require.NoError(t, CheckRoutes(routes, nil))
	require.ErrorIs(t, CheckRoutes(routes, models.NewProviderSet("google")), ErrMissingRoute)
	require.ErrorIs(t, CheckRoutes(models.RouteTable{}, nil), ErrMissingRoute)
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	data := models.LoginPageData{
		Routes:    baseRoutes(),
		Errors:    models.ValidationErrors{"email": {"bad"}},
		Old:       models.OldInput{"email": "a@b.c"},
		Providers: models.NewProviderSet("google", "github"),
		Status:    "hello",
	}
	var a, b bytes.Buffer
	require.NoError(t, Render(&a, data))
	require.NoError(t, Render(&b, data))
	require.Equal(t, a.String(), b.String())
}

func mustHTML(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	out, err := doc.Html()
	require.NoError(t, err)
	return out
}
