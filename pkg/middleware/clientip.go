package middleware

import (
	"net/http"
	"strings"
)

// ClientIP extracts the originating client address from a request. It prefers
// the first entry of X-Forwarded-For, then X-Real-IP, and falls back to the
// literal "unknown" so rate limit keys stay well-formed behind any proxy
// setup.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return "unknown"
}
