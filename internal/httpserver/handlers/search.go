package handlers

import (
	"net/http"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/logger"
)

func SearchAnnotations(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params domain.AnnotSearchParams
		if err := decode(r, &params); err != nil {
			writeError(d.Logger, w, err)
			return
		}

		d.Logger.Debug("annotation search",
			logger.Int("terms", len(params.TermsInc)),
			logger.Int("tags_inc", len(params.TagsInc)),
			logger.Int("lists", len(params.Lists)))

		result, err := d.Search.SearchAnnotations(r.Context(), params)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func SearchPages(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params domain.AnnotSearchParams
		if err := decode(r, &params); err != nil {
			writeError(d.Logger, w, err)
			return
		}

		d.Logger.Debug("page search",
			logger.Int("terms", len(params.TermsInc)),
			logger.Int("tags_inc", len(params.TagsInc)),
			logger.Int("lists", len(params.Lists)))

		docs, err := d.Search.SearchPages(r.Context(), params)
		if err != nil {
			writeError(d.Logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Docs []domain.AnnotPage `json:"docs"`
		}{Docs: docs})
	}
}
