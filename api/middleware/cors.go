package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS lets the booking site and admin console call the API from their own
// origins. Credentials are allowed for the admin session cookie, which rules
// out a "*" origin; it is dropped if configured.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" && o != "*" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:3000"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
