package handlers

import (
	"net/http"

	"github.com/webstash/webstash/internal/httpserver/deps"
)

func FetchPageTags(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL string `json:"url"`
	}
	type resp struct {
		Tags []string `json:"tags"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		names, err := d.Tags.FetchPageTags(r.Context(), in.URL)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, resp{Tags: names})
	}
}

func AddTag(d deps.Deps) http.HandlerFunc {
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
		if err := d.Tags.AddTag(r.Context(), in.Name, in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func DelTag(d deps.Deps) http.HandlerFunc {
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
		if err := d.Tags.DelTag(r.Context(), in.Name, in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func AddTagsToTabs(d deps.Deps) http.HandlerFunc {
	type req struct {
		Name string   `json:"name"`
		URLs []string `json:"urls"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Tags.AddTagsToOpenTabs(r.Context(), in.Name, in.URLs); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func DelTagsFromTabs(d deps.Deps) http.HandlerFunc {
	type req struct {
		Name string   `json:"name"`
		URLs []string `json:"urls"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Tags.DelTagsFromOpenTabs(r.Context(), in.Name, in.URLs); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}
