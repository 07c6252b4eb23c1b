package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the real client IP address from the request, checking
// proxy headers (X-Forwarded-For, X-Real-IP) before falling back to
// RemoteAddr. Webhook capture stores it for audit.
//
// In production, ensure the reverse proxy sets these headers and that
// direct access to the application is not possible, as they can be spoofed.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// The first entry is the originating client.
		if ip := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0]); ip != "" {
			return ip
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
