package util

import (
	"net/url"
	"strings"
)

// ResolveHref resolves a raw href against base, the URL the page was fetched
// from. It reports false when href does not parse or does not resolve to an
// http(s) URL (mailto:, javascript:, tel: and friends).
func ResolveHref(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if !IsWebScheme(abs.Scheme) || abs.Host == "" {
		return "", false
	}
	return abs.String(), true
}

func IsWebScheme(s string) bool {
	s = strings.ToLower(s)
	return s == "http" || s == "https"
}
