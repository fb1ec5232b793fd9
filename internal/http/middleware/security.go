// Package middleware holds HTTP middlewares shared across the service:
// security headers and Redis-backed rate limiting.
package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders sets conservative response headers on every request and
// disables caching of admin responses, which may expose idempotency keys.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if strings.HasPrefix(r.URL.Path, "/v1/admin/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}
