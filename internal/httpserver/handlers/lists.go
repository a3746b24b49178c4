package handlers

import (
	"net/http"

	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/lists"
)

func CreateList(d deps.Deps) http.HandlerFunc {
	type req struct {
		Name string `json:"name"`
	}
	type resp struct {
		ID int64 `json:"id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		id, err := d.Lists.CreateList(r.Context(), in.Name)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp{ID: id})
	}
}

func UpdateListName(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Lists.UpdateListName(r.Context(), in.ID, in.Name); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func RemoveList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID int64 `json:"id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		counts, err := d.Lists.RemoveList(r.Context(), in.ID)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func FetchAllLists(d deps.Deps) http.HandlerFunc {
	type req struct {
		ExcludedIDs []int64 `json:"excludedIds"`
		Limit       int     `json:"limit"`
		Skip        int     `json:"skip"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		found, err := d.Lists.FetchAllLists(r.Context(), in.ExcludedIDs, in.Limit, in.Skip)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

func FetchListByID(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID int64 `json:"id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		list, err := d.Lists.FetchListByID(r.Context(), in.ID)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if list == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "list not found"})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func FetchListsByNames(d deps.Deps) http.HandlerFunc {
	type req struct {
		Names []string `json:"names"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		found, err := d.Lists.FetchListByNames(r.Context(), in.Names)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

func FetchListIgnoreCase(d deps.Deps) http.HandlerFunc {
	type req struct {
		Name string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		list, err := d.Lists.FetchListIgnoreCase(r.Context(), in.Name)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func FetchListsByPage(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		found, err := d.Lists.FetchListPagesByURL(r.Context(), in.URL)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

func InsertPageToList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Lists.InsertPageToList(r.Context(), in.ID, in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func RemovePageFromList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Lists.RemovePageFromList(r.Context(), in.ID, in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func InsertMissingLists(d deps.Deps) http.HandlerFunc {
	type req struct {
		Names []string `json:"names"`
	}
	type resp struct {
		IDs []int64 `json:"ids"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		ids, err := d.Lists.InsertMissingLists(r.Context(), in.Names)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp{IDs: ids})
	}
}

func SuggestListNames(d deps.Deps) http.HandlerFunc {
	type req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		found, err := d.Lists.FetchListNameSuggestions(r.Context(), in.Name, in.URL)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

func AddTabsToList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID   int64       `json:"id"`
		Tabs []lists.Tab `json:"tabs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Lists.AddTabsToList(r.Context(), in.ID, in.Tabs); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func RemoveTabsFromList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ID   int64       `json:"id"`
		Tabs []lists.Tab `json:"tabs"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Lists.RemoveTabsFromList(r.Context(), in.ID, in.Tabs); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}
