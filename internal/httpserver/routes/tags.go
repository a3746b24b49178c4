package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/httpserver/handlers"
)

func init() { Register(registerTags) }

func registerTags(r chi.Router, d deps.Deps) {
	r.Route("/api/tags", func(r chi.Router) {
		r.Post("/fetchByPage", handlers.FetchPageTags(d))
		r.Post("/add", handlers.AddTag(d))
		r.Post("/del", handlers.DelTag(d))
		r.Post("/addToTabs", handlers.AddTagsToTabs(d))
		r.Post("/delFromTabs", handlers.DelTagsFromTabs(d))
	})
}
