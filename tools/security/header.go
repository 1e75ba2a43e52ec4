package security

import (
	"net/http"
	"strings"
)

// TokenFromHeader extracts the bearer credential: Authorization
// first, X-Auth-Token as fallback. Empty string means absent, which
// callers treat differently from a failed verification.
func TokenFromHeader(h http.Header) string {
	if authz := strings.TrimSpace(h.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return strings.TrimSpace(h.Get("X-Auth-Token"))
}
