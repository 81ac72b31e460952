package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/navatransportes/nava-fleet/internal/domain/types"
)

// CORS allows the web client origins. An empty list allows any origin without credentials.
func (m *Middleware) CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", types.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", types.RequestIDHeader},
		AllowCredentials: len(allowedOrigins) > 0,
		MaxAge:           300,
	}
	if len(allowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}
