package admission

import (
	"net/http"
	"strings"
)

const LoopbackIdentity = "127.0.0.1"

// ClientIdentity derives an unauthenticated caller's identity from proxy headers:
// the first X-Forwarded-For hop, then X-Real-IP, then the loopback sentinel.
//
// Both headers are client-controlled unless a trusted reverse proxy overwrites
// them, so the result is only meaningful behind such a proxy. Prefer an
// authenticated user id whenever one exists.
func ClientIdentity(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(h.Get("X-Real-IP")); real != "" {
		return real
	}
	return LoopbackIdentity
}
