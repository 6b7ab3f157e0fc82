package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// userAgentPrefixLen bounds how much of the User-Agent participates in the
// fingerprint; full UA strings are long and high-cardinality.
const userAgentPrefixLen = 50

// ClientIP extracts the originating address: first X-Forwarded-For entry,
// then X-Real-IP, then the RemoteAddr host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// Fingerprint keys rate-limit state by client address plus a truncated
// User-Agent, so two browsers behind one NAT do not share a bucket.
func Fingerprint(r *http.Request) string {
	ua := r.Header.Get("User-Agent")
	if len(ua) > userAgentPrefixLen {
		ua = ua[:userAgentPrefixLen]
	}
	return ClientIP(r) + "-" + ua
}
