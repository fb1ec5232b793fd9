package idempotency

import (
	"net/http"
	"strings"
)

// HeaderIdempotencyKey is the request header carrying the client token.
const HeaderIdempotencyKey = "Idempotency-Key"

// Gate enforces per-route policy ahead of the interception middleware.
// Routes without a registered policy pass through untouched; registered
// routes missing a required key are rejected, and otherwise the resolved
// policy rides the request context for the interceptor to consume.
func Gate(registry *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy, ok := registry.Lookup(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if policy.Required && token == "" {
				writeError(w, http.StatusBadRequest,
					"Idempotency-Key header is required for this operation",
					map[string]any{
						"header":      HeaderIdempotencyKey,
						"description": "Provide a unique identifier to prevent duplicate requests",
						"example":     HeaderIdempotencyKey + ": 550e8400-e29b-41d4-a716-446655440000",
					})
				return
			}

			next.ServeHTTP(w, r.WithContext(withPolicy(r.Context(), policy)))
		})
	}
}
