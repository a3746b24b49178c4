package search

import (
	"context"
	"sort"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/tags"
)

// displayTagLimit caps how many tags ride along on each result annotation.
// Full tag lists stay a separate lookup.
const displayTagLimit = 4

// Enricher decorates raw annotations with the display-only fields search
// results carry: a capped tag list and the bookmark flag. Lookups are
// batched across the whole result set.
type Enricher struct {
	annots *annots.Store
	tags   *tags.Store
}

func NewEnricher(annotStore *annots.Store, tagStore *tags.Store) *Enricher {
	return &Enricher{annots: annotStore, tags: tagStore}
}

func (e *Enricher) Enrich(ctx context.Context, list []domain.Annotation) ([]domain.Annotation, error) {
	if len(list) == 0 {
		return list, nil
	}

	urls := make([]string, len(list))
	for i, a := range list {
		urls[i] = a.URL
	}

	tagsByURL, err := e.tags.FetchTagsByURLs(ctx, urls)
	if err != nil {
		return nil, err
	}
	bookmarked, err := e.annots.FetchBookmarkedURLs(ctx, urls)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Annotation, len(list))
	for i, a := range list {
		names := tagsByURL[a.URL]
		sort.Strings(names)
		if len(names) > displayTagLimit {
			names = names[:displayTagLimit]
		}
		if names == nil {
			names = []string{}
		}
		a.Tags = names
		a.HasBookmark = bookmarked[a.URL]
		out[i] = a
	}
	return out, nil
}
