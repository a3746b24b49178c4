package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/httpserver/handlers"
)

func init() { Register(registerSearch) }

func registerSearch(r chi.Router, d deps.Deps) {
	r.Post("/api/search/annotations", handlers.SearchAnnotations(d))
	r.Post("/api/search/pages", handlers.SearchPages(d))
}
