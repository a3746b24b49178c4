package handlers

import (
	"net/http"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/httpserver/deps"
)

func CreateAnnotation(d deps.Deps) http.HandlerFunc {
	type resp struct {
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in annots.CreateRequest
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		url, err := d.Annots.CreateAnnotation(r.Context(), in)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp{URL: url})
	}
}

func EditAnnotation(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL     string `json:"url"`
		Comment string `json:"comment"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Annots.EditAnnotation(r.Context(), in.URL, in.Comment); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func DeleteAnnotation(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Annots.DeleteAnnotation(r.Context(), in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func GetAnnotation(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		annot, err := d.Annots.GetAnnotationByPk(r.Context(), in.URL)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if annot == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "annotation not found"})
			return
		}
		writeJSON(w, http.StatusOK, annot)
	}
}

func GetAnnotationsByPage(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		found, err := d.Annots.GetAnnotationsByPage(r.Context(), in.URL)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}
}

func GetAnnotationTags(d deps.Deps) http.HandlerFunc {
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
		names, err := d.Annots.GetTagsByAnnotationURL(r.Context(), in.URL)
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

func ToggleAnnotBookmark(d deps.Deps) http.HandlerFunc {
	type req struct {
		URL string `json:"url"`
	}
	type resp struct {
		HasBookmark bool `json:"hasBookmark"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		created, err := d.Annots.ToggleAnnotBookmark(r.Context(), in.URL)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp{HasBookmark: created})
	}
}

func InsertAnnotToList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ListID int64  `json:"listId"`
		URL    string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Annots.InsertAnnotToList(r.Context(), in.ListID, in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

func RemoveAnnotFromList(d deps.Deps) http.HandlerFunc {
	type req struct {
		ListID int64  `json:"listId"`
		URL    string `json:"url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		if err := d.Annots.RemoveAnnotFromList(r.Context(), in.ListID, in.URL); err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}
