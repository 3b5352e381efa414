package models

import "strings"

// LoginPageData represents the data passed to the login template for rendering.
// Everything the page shows arrives through this struct; the template reads no
// request or session state of its own.
type LoginPageData struct {
	// Errors holds field-level validation messages from the previous submission.
	Errors ValidationErrors

	// Old holds the values submitted with the previous (failed) attempt.
	// Only the email and remember fields are ever echoed back.
	Old OldInput

	// Status is a one-time message shown above the form, e.g. after signing out.
	// Empty string means no banner.
	Status string

	// Providers lists the social-login providers that are enabled.
	Providers ProviderSet

	// Routes resolves the logical route names used by the page.
	Routes RouteTable

	// CSRFToken is rendered verbatim into a hidden field named CSRFFieldName.
	// Empty string means no hidden field.
	CSRFToken     string
	CSRFFieldName string

	// AssetPrefix is the URL prefix for the page's stylesheet and script.
	// Defaults to "/static/".
	AssetPrefix string
}

// ValidationErrors maps a field name to its ordered error messages.
type ValidationErrors map[string][]string

// Has reports whether field has at least one message.
func (e ValidationErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field, or "".
func (e ValidationErrors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Add appends a message for field.
func (e ValidationErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Empty reports whether no field has errors.
func (e ValidationErrors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// OldInput maps a field name to the value submitted on the previous attempt.
type OldInput map[string]string

// Get returns the old value for field, or "".
func (o OldInput) Get(field string) string {
	return o[field]
}

// Bool interprets the old value for field the way an HTML checkbox is
// submitted: present and not explicitly false.
func (o OldInput) Bool(field string) bool {
	switch strings.ToLower(strings.TrimSpace(o[field])) {
	case "", "0", "false", "off", "no":
		return false
	default:
		return true
	}
}
