package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/httpserver/handlers"
)

func init() { Register(registerAnnotations) }

func registerAnnotations(r chi.Router, d deps.Deps) {
	r.Route("/api/annotations", func(r chi.Router) {
		r.Post("/create", handlers.CreateAnnotation(d))
		r.Post("/edit", handlers.EditAnnotation(d))
		r.Post("/delete", handlers.DeleteAnnotation(d))
		r.Post("/get", handlers.GetAnnotation(d))
		r.Post("/byPage", handlers.GetAnnotationsByPage(d))
		r.Post("/tags", handlers.GetAnnotationTags(d))
		r.Post("/toggleBookmark", handlers.ToggleAnnotBookmark(d))
		r.Post("/insertToList", handlers.InsertAnnotToList(d))
		r.Post("/removeFromList", handlers.RemoveAnnotFromList(d))
	})
}
