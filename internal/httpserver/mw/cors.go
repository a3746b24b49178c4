package mw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns the cross-origin policy for the API. The surface is
// consumed by a browser-extension UI, so any origin may call it; only the
// methods and headers the routes actually use are allowed.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
