package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/httpserver/handlers"
)

func init() { Register(registerLists) }

// RPC-style surface: every endpoint is a POST taking one JSON argument
// object, mirroring the store operations one-to-one.
func registerLists(r chi.Router, d deps.Deps) {
	r.Route("/api/lists", func(r chi.Router) {
		r.Post("/create", handlers.CreateList(d))
		r.Post("/updateName", handlers.UpdateListName(d))
		r.Post("/remove", handlers.RemoveList(d))
		r.Post("/fetchAll", handlers.FetchAllLists(d))
		r.Post("/fetchById", handlers.FetchListByID(d))
		r.Post("/fetchByNames", handlers.FetchListsByNames(d))
		r.Post("/fetchIgnoreCase", handlers.FetchListIgnoreCase(d))
		r.Post("/fetchByPage", handlers.FetchListsByPage(d))
		r.Post("/insertPage", handlers.InsertPageToList(d))
		r.Post("/removePage", handlers.RemovePageFromList(d))
		r.Post("/insertMissing", handlers.InsertMissingLists(d))
		r.Post("/suggest", handlers.SuggestListNames(d))
		r.Post("/addTabs", handlers.AddTabsToList(d))
		r.Post("/removeTabs", handlers.RemoveTabsFromList(d))
	})
}
