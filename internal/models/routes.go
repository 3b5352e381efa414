package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Route names used by the login page
const (
	RouteLogin           = "login"
	RouteLogout          = "logout"
	RouteHome            = "home"
	RoutePasswordRequest = "password.request"
	RouteRegister        = "register"
	RouteSocialRedirect  = "social.redirect"
)

// ErrMissingRoute is returned when a route name is not present in the table.
var ErrMissingRoute = errors.New("missing route")

// RouteTable maps a logical route name to its resolved URL. A URL may contain
// {name} placeholders which URL fills from its params in order.
type RouteTable map[string]string

// Has reports whether the table contains name.
func (t RouteTable) Has(name string) bool {
	_, ok := t[name]
	return ok
}

// URL resolves name, substituting params into {placeholders} in order.
// Params left over once the placeholders run out are appended as path
// segments.
func (t RouteTable) URL(name string, params ...string) (string, error) {
	raw, ok := t[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingRoute, name)
	}

	for _, param := range params {
		escaped := url.PathEscape(param)
		open := strings.Index(raw, "{")
		closing := -1
		if open >= 0 {
			closing = strings.Index(raw[open:], "}")
		}
		if open < 0 || closing < 0 {
			raw = strings.TrimSuffix(raw, "/") + "/" + escaped
			continue
		}
		raw = raw[:open] + escaped + raw[open+closing+1:]
	}
	return raw, nil
}
