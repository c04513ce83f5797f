package utils

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseInt reads a query value as an int clamped to [lo, hi]. Empty or
// malformed input yields def.
func ParseInt(value string, def, lo, hi int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return min(max(n, lo), hi)
}

// IsAllowedOrigin reports whether origin (or any URL on that origin)
// matches one of the configured CORS patterns.
func IsAllowedOrigin(origin string, patterns []string) bool {
	if origin == "" {
		return false
	}
	origin = originOf(origin)
	for _, p := range patterns {
		if MatchOrigin(origin, p) {
			return true
		}
	}
	return false
}

// originOf strips path and query, keeping scheme://host.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// MatchOrigin matches a single origin against a pattern. Supported forms
// are "*", an exact origin, "https://**.example.io" (apex and subdomains)
// and "https://*.example.io" (subdomains only).
func MatchOrigin(origin, pattern string) bool {
	switch {
	case pattern == "*", origin == pattern:
		return true
	case strings.Contains(pattern, "**."):
		apex := strings.Replace(pattern, "**.", "", 1)
		if origin == apex {
			return true
		}
		host := strings.TrimPrefix(strings.TrimPrefix(apex, "https://"), "http://")
		scheme := strings.TrimSuffix(apex, host)
		return strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, "."+host)
	case strings.Count(pattern, "*") == 1:
		head, tail, _ := strings.Cut(pattern, "*")
		if !strings.HasPrefix(tail, ".") || len(origin) <= len(head)+len(tail) {
			return false
		}
		if !strings.HasPrefix(origin, head) || !strings.HasSuffix(origin, tail) {
			return false
		}
		sub := origin[len(head) : len(origin)-len(tail)]
		return !strings.ContainsAny(sub, "/:")
	}
	return false
}
