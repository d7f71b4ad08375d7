package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS runs with credentials enabled because the refresh and CSRF cookies
// ride on cross-origin requests. The origin list must therefore be an
// explicit allow-list; config validation rejects wildcards.
func CORS(origins []string) func(http.Handler) http.Handler {
	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With", "X-Request-ID", "Accept"},
		ExposedHeaders:   []string{"Set-Cookie", "X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: true,
	})

	return handler.Handler
}
