package search

import (
	"context"
	"sort"
	"strings"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/lists"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/tags"
)

// LegacyParams is the reshaped query handed to the page-ranking search that
// backs term mode and pure page search.
type LegacyParams struct {
	Query         string
	Tags          []string
	TagsExc       []string
	Lists         []int64
	StartDate     int64
	EndDate       int64
	BookmarksOnly bool
	Limit         int
	Skip          int
}

// LegacyResult mirrors the page search wire shape: IDs is a list of
// [pageUrl, rank, latestTime] triples.
type LegacyResult struct {
	IDs        [][]any
	TotalCount int
}

// PageURLs extracts the URL column of the triples.
func (r LegacyResult) PageURLs() []string {
	urls := make([]string, 0, len(r.IDs))
	for _, id := range r.IDs {
		if len(id) > 0 {
			if url, ok := id[0].(string); ok {
				urls = append(urls, url)
			}
		}
	}
	return urls
}

// LatestTimes extracts the latest-time column, parallel to PageURLs.
func (r LegacyResult) LatestTimes() []int64 {
	times := make([]int64, 0, len(r.IDs))
	for _, id := range r.IDs {
		if len(id) < 3 {
			continue
		}
		switch v := id[2].(type) {
		case int64:
			times = append(times, v)
		case int:
			times = append(times, int64(v))
		case float64:
			times = append(times, int64(v))
		default:
			times = append(times, 0)
		}
	}
	return times
}

// LegacySearch ranks pages for a term query. Injected so the engine can run
// against the built-in local provider or an external index.
type LegacySearch func(ctx context.Context, params LegacyParams) (LegacyResult, error)

// LocalLegacySearch builds the default provider: a linear scan of the page
// store matching every query term against title and full URL, restricted by
// page tags and list membership, ranked by latest-interaction time.
func LocalLegacySearch(pageStore *pages.Store, tagStore *tags.Store, listStore *lists.Store) LegacySearch {
	return func(ctx context.Context, params LegacyParams) (LegacyResult, error) {
		all, err := pageStore.All(ctx)
		if err != nil {
			return LegacyResult{}, err
		}

		var inLists map[string]bool
		if len(params.Lists) > 0 {
			inLists = make(map[string]bool)
			for _, id := range params.Lists {
				entries, err := listStore.FetchListPagesByID(ctx, id)
				if err != nil {
					return LegacyResult{}, err
				}
				for _, entry := range entries {
					inLists[entry.PageURL] = true
				}
			}
		}

		var tagsByURL map[string][]string
		if len(params.Tags) > 0 || len(params.TagsExc) > 0 {
			urls := make([]string, len(all))
			for i, page := range all {
				urls[i] = page.URL
			}
			tagsByURL, err = tagStore.FetchTagsByURLs(ctx, urls)
			if err != nil {
				return LegacyResult{}, err
			}
		}

		terms := strings.Fields(strings.ToLower(params.Query))
		matched := make([]domain.Page, 0, len(all))
		for _, page := range all {
			if page.Latest == 0 {
				continue
			}
			if params.StartDate > 0 && page.Latest < params.StartDate {
				continue
			}
			if params.EndDate > 0 && page.Latest > params.EndDate {
				continue
			}
			if inLists != nil && !inLists[page.URL] {
				continue
			}
			if tagsByURL != nil && !matchesTags(tagsByURL[page.URL], params.Tags, params.TagsExc) {
				continue
			}
			haystack := strings.ToLower(page.Title + " " + page.FullURL)
			ok := true
			for _, term := range terms {
				if !strings.Contains(haystack, term) {
					ok = false
					break
				}
			}
			if ok {
				matched = append(matched, page)
			}
		}

		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Latest > matched[j].Latest
		})

		total := len(matched)
		if params.Skip > 0 {
			if params.Skip >= len(matched) {
				matched = nil
			} else {
				matched = matched[params.Skip:]
			}
		}
		if params.Limit > 0 && len(matched) > params.Limit {
			matched = matched[:params.Limit]
		}

		ids := make([][]any, len(matched))
		for i, page := range matched {
			rank := float64(len(matched) - i)
			ids[i] = []any{page.URL, rank, page.Latest}
		}
		return LegacyResult{IDs: ids, TotalCount: total}, nil
	}
}
