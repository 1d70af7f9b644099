package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// localOrigins are the portal front-end dev servers.
var localOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS applies the origin policy for browser clients of the ledger. Replay
// and request-id headers are exposed so the front end can tell a replayed
// claim from a fresh one.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = localOrigins
	}
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, ReplayedHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}
	return cors.New(opts).Handler
}
