// Package fingerprint derives opaque rate-limit bucket tokens from
// client network addresses. The hash is deliberately non-cryptographic:
// it only groups repeat submitters, the address itself is never stored.
package fingerprint

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Unknown is the sentinel used when no client address can be resolved.
const Unknown = "unknown"

// Hash maps a client address to a short opaque token. It accumulates a
// 32-bit polynomial rolling hash (h = h*31 + c, wrapping) and renders
// it in base 36, so tokens stay stable across restarts and match data
// written by earlier deployments. Collisions only cost rate-limit
// precision.
func Hash(s string) string {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	return strconv.FormatInt(int64(h), 36)
}

// FromRequest resolves the client address for r and returns its hash
// token. Resolution order: X-Forwarded-For (first hop), X-Real-IP, the
// socket address, then the Unknown sentinel.
func FromRequest(r *http.Request) string {
	return Hash(ClientAddr(r))
}

// ClientAddr returns the best-effort client address for r.
func ClientAddr(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}

	if v := r.Header.Get("X-Real-IP"); v != "" {
		return strings.TrimSpace(v)
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return Unknown
}
