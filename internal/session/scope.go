// Package session persists which sites have voice control switched on.
// Activation is scoped to the registrable domain, so turning it on for
// docs.example.com covers example.com and every other subdomain.
package session

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ScopeForURL derives the activation scope from a page URL: the
// registrable domain (eTLD+1) of the hostname. Hosts without a public
// suffix, such as IP addresses and localhost, scope to themselves.
func ScopeForURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	if net.ParseIP(host) != nil {
		return host, nil
	}

	scope, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Single-label hosts and private suffixes fall back to the
		// hostname itself.
		return host, nil
	}
	return scope, nil
}
