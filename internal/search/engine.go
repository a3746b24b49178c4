// Package search implements the two annotation search modes: day-clustered
// browsing when no terms are given, and flat term-ranked results otherwise.
package search

import (
	"context"
	"strings"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
)

// defaultLimit bounds a search when the caller passes none.
const defaultLimit = 10

type Engine struct {
	pages  *pages.Store
	lister *Lister
	enrich *Enricher
	legacy LegacySearch
	log    logger.Logger
}

func NewEngine(pageStore *pages.Store, lister *Lister, enricher *Enricher, legacy LegacySearch, log logger.Logger) *Engine {
	return &Engine{pages: pageStore, lister: lister, enrich: enricher, legacy: legacy, log: log}
}

// SearchAnnotations dispatches on the presence of terms: without terms the
// result is day-clustered buckets, with terms a flat ranked document list.
// Both modes fill Docs with resolved pages carrying their annotations.
func (e *Engine) SearchAnnotations(ctx context.Context, params domain.AnnotSearchParams) (*domain.AnnotSearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if len(params.TermsInc) == 0 {
		return e.searchByDay(ctx, params)
	}
	return e.searchByTerms(ctx, params)
}

// searchByDay clusters filtered annotations into UTC-day buckets. Tag
// exclusion runs after enrichment against the display tag list. Pages that
// no longer resolve are reconciled out: their groups drop from the buckets
// and days left empty drop entirely, so the clusters never reference a page
// absent from Docs.
func (e *Engine) searchByDay(ctx context.Context, params domain.AnnotSearchParams) (*domain.AnnotSearchResult, error) {
	empty := &domain.AnnotSearchResult{AnnotsByDay: []domain.DayBucket{}, Docs: []domain.AnnotPage{}}

	filtered, err := e.lister.Filtered(ctx, params)
	if err != nil {
		return nil, err
	}
	filtered = paginate(filtered, params.Skip, params.Limit)
	if len(filtered) == 0 {
		return empty, nil
	}

	enriched, err := e.enrich.Enrich(ctx, filtered)
	if err != nil {
		return nil, err
	}
	enriched = ExcludeTags(enriched, params.TagsExc)
	if len(enriched) == 0 {
		return empty, nil
	}
	buckets := ClusterByDay(enriched)

	pageURLs := uniquePageURLs(enriched)
	docs, err := e.pages.MapURLsToPages(ctx, pages.MapRequest{
		PageURLs:       pageURLs,
		Base64Img:      params.Base64Img,
		UpperTimeBound: params.EndDate,
	})
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]bool, len(docs))
	for _, doc := range docs {
		resolved[doc.URL] = true
	}
	if len(resolved) < len(pageURLs) {
		e.log.Warn("dropping annotation groups for unresolved pages",
			logger.Int("requested", len(pageURLs)),
			logger.Int("resolved", len(resolved)))
		buckets = dropUnresolved(buckets, resolved)
	}

	annotsByPage := groupByPage(enriched, resolved)
	for i := range docs {
		docs[i].Annotations = annotsByPage[docs[i].URL]
	}

	return &domain.AnnotSearchResult{AnnotsByDay: buckets, Docs: docs}, nil
}

// searchByTerms runs the page-ranking search over the query terms, then
// keeps the pages whose annotations match every term plus the remaining
// filters. No day clustering; order follows the page ranking.
func (e *Engine) searchByTerms(ctx context.Context, params domain.AnnotSearchParams) (*domain.AnnotSearchResult, error) {
	empty := &domain.AnnotSearchResult{Docs: []domain.AnnotPage{}}

	// Ranking input only: structural filters are applied to the
	// annotation candidates below, not to the page ranking.
	ranked, err := e.legacy(ctx, LegacyParams{
		Query:     strings.Join(params.TermsInc, " "),
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	})
	if err != nil {
		return nil, err
	}

	candidates, err := e.lister.Filtered(ctx, params)
	if err != nil {
		return nil, err
	}
	candidates = FilterTerms(candidates, params.TermsInc)
	if len(candidates) == 0 {
		return empty, nil
	}
	byPage := groupByPage(candidates, nil)

	pageURLs := ranked.PageURLs()
	latest := ranked.LatestTimes()

	// Ranked pages first, in ranking order; pages only the annotations
	// matched follow, newest annotation first.
	keptURLs := make([]string, 0, len(byPage))
	keptTimes := make([]int64, 0, len(byPage))
	for i, url := range pageURLs {
		if len(byPage[url]) == 0 {
			continue
		}
		keptURLs = append(keptURLs, url)
		if i < len(latest) {
			keptTimes = append(keptTimes, latest[i])
		} else {
			keptTimes = append(keptTimes, 0)
		}
	}
	kept := make(map[string]bool, len(keptURLs))
	for _, url := range keptURLs {
		kept[url] = true
	}
	// candidates are sorted by lastEdited descending already.
	for _, a := range candidates {
		if kept[a.PageURL] {
			continue
		}
		kept[a.PageURL] = true
		keptURLs = append(keptURLs, a.PageURL)
		keptTimes = append(keptTimes, a.LastEdited)
	}
	keptURLs, keptTimes = paginatePages(keptURLs, keptTimes, params.Skip, params.Limit)
	if len(keptURLs) == 0 {
		return empty, nil
	}

	docs, err := e.pages.MapURLsToPages(ctx, pages.MapRequest{
		PageURLs:       keptURLs,
		Base64Img:      params.Base64Img,
		UpperTimeBound: params.EndDate,
		LatestTimes:    keptTimes,
	})
	if err != nil {
		return nil, err
	}

	// One batched enrichment over every annotation riding on the result
	// pages, then distribute back per page.
	flat := make([]domain.Annotation, 0, len(candidates))
	for _, doc := range docs {
		flat = append(flat, byPage[doc.URL]...)
	}
	enriched, err := e.enrich.Enrich(ctx, flat)
	if err != nil {
		return nil, err
	}
	enriched = ExcludeTags(enriched, params.TagsExc)
	enrichedByPage := groupByPage(enriched, nil)

	out := docs[:0]
	for _, doc := range docs {
		doc.Annotations = enrichedByPage[doc.URL]
		if len(doc.Annotations) == 0 {
			continue
		}
		out = append(out, doc)
	}
	return &domain.AnnotSearchResult{Docs: out}, nil
}

// SearchPages is pure page search: reshape the parameters for the ranking
// provider, short-circuit on zero hits, and batch-resolve the hit URLs,
// passing any per-URL latest-interaction times through to the resolver.
func (e *Engine) SearchPages(ctx context.Context, params domain.AnnotSearchParams) ([]domain.AnnotPage, error) {
	ranked, err := e.legacy(ctx, reshapeParams(params))
	if err != nil {
		return nil, err
	}
	if len(ranked.IDs) == 0 {
		return []domain.AnnotPage{}, nil
	}

	docs, err := e.pages.MapURLsToPages(ctx, pages.MapRequest{
		PageURLs:       ranked.PageURLs(),
		Base64Img:      params.Base64Img,
		UpperTimeBound: params.EndDate,
		LatestTimes:    ranked.LatestTimes(),
	})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []domain.AnnotPage{}
	}
	return docs, nil
}

// reshapeParams adapts the annotation-search parameter shape into the one
// the ranking provider expects.
func reshapeParams(params domain.AnnotSearchParams) LegacyParams {
	return LegacyParams{
		Query:         strings.Join(params.TermsInc, " "),
		Tags:          params.TagsInc,
		TagsExc:       params.TagsExc,
		Lists:         params.Lists,
		StartDate:     params.StartDate,
		EndDate:       params.EndDate,
		BookmarksOnly: params.BookmarksOnly,
		Limit:         params.Limit,
		Skip:          params.Skip,
	}
}

// dropUnresolved removes page groups whose page did not resolve and then
// any day left without pages.
func dropUnresolved(buckets []domain.DayBucket, resolved map[string]bool) []domain.DayBucket {
	out := buckets[:0]
	for _, b := range buckets {
		groups := b.Pages[:0]
		for _, g := range b.Pages {
			if resolved[g.PageURL] {
				groups = append(groups, g)
			}
		}
		b.Pages = groups
		if len(b.Pages) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// groupByPage buckets annotations by page URL. When resolved is non-nil,
// unresolved pages are skipped.
func groupByPage(list []domain.Annotation, resolved map[string]bool) map[string][]domain.Annotation {
	out := make(map[string][]domain.Annotation)
	for _, a := range list {
		if resolved != nil && !resolved[a.PageURL] {
			continue
		}
		out[a.PageURL] = append(out[a.PageURL], a)
	}
	return out
}

func uniquePageURLs(list []domain.Annotation) []string {
	seen := make(map[string]bool)
	urls := make([]string, 0, len(list))
	for _, a := range list {
		if !seen[a.PageURL] {
			seen[a.PageURL] = true
			urls = append(urls, a.PageURL)
		}
	}
	return urls
}

func paginate(list []domain.Annotation, skip, limit int) []domain.Annotation {
	if skip > 0 {
		if skip >= len(list) {
			return nil
		}
		list = list[skip:]
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

func paginatePages(urls []string, times []int64, skip, limit int) ([]string, []int64) {
	if skip > 0 {
		if skip >= len(urls) {
			return nil, nil
		}
		urls, times = urls[skip:], times[skip:]
	}
	if limit > 0 && len(urls) > limit {
		urls, times = urls[:limit], times[:limit]
	}
	return urls, times
}
