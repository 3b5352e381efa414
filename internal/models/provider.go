package models

import "strings"

// Provider identifies a social-login provider
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderFacebook Provider = "facebook"
)

// providerOrder is the display order of social buttons.
var providerOrder = []Provider{ProviderGoogle, ProviderGitHub, ProviderFacebook}

// AllProviders returns every supported provider in display order.
func AllProviders() []Provider {
	out := make([]Provider, len(providerOrder))
	copy(out, providerOrder)
	return out
}

// ParseProvider returns the provider named by s (case-insensitive).
func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range providerOrder {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Label returns the button text for the provider.
func (p Provider) Label() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderGitHub:
		return "GitHub"
	case ProviderFacebook:
		return "Facebook"
	default:
		return string(p)
	}
}

// ProviderSet is the set of enabled social-login providers.
type ProviderSet map[Provider]struct{}

// NewProviderSet builds a set from provider ids, ignoring unknown ones.
func NewProviderSet(ids ...string) ProviderSet {
	set := make(ProviderSet, len(ids))
	for _, id := range ids {
		if p, ok := ParseProvider(id); ok {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has reports whether p is enabled.
func (s ProviderSet) Has(p Provider) bool {
	_, ok := s[p]
	return ok
}

// Ordered returns the enabled providers in display order, regardless of
// the order they were added in.
func (s ProviderSet) Ordered() []Provider {
	var out []Provider
	for _, p := range providerOrder {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
