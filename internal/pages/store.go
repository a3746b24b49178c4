// Package pages holds the minimal page store: lazy stub creation on first
// annotation/tag/list event, visit bumps so pages surface in results, and
// the batched URL-to-page resolution the search engine consumes.
package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
)

const Collection = "pages"

// MapRequest asks for full page records for a set of normalized URLs.
// Unresolved URLs are omitted, never errors. LatestTimes, when present,
// runs parallel to PageURLs and spares the resolver a timestamp lookup.
type MapRequest struct {
	PageURLs       []string
	Base64Img      bool
	UpperTimeBound int64
	LatestTimes    []int64
}

type Store struct {
	reg *registry.Registry
	log logger.Logger
}

func NewStore(reg *registry.Registry, log logger.Logger) (*Store, error) {
	s := &Store{reg: reg, log: log}

	err := reg.RegisterCollection(storage.Schema{
		Name:    Collection,
		Version: time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC),
		PK:      []string{"url"},
	})
	if err != nil {
		return nil, err
	}

	ops := map[string]registry.Operation{
		"createPage": {
			Collection: Collection,
			Kind:       registry.CreateObject,
			Set: []registry.SetField{
				{Field: "url", Param: "url", Type: registry.TString},
				{Field: "fullUrl", Param: "fullUrl", Type: registry.TString},
				{Field: "pageTitle", Param: "pageTitle", Type: registry.TString, Optional: true},
				{Field: "isStub", Param: "isStub", Type: registry.TBool},
				{Field: "latest", Param: "latest", Type: registry.TInt, Optional: true},
			},
		},
		"findPageByUrl": {
			Collection: Collection,
			Kind:       registry.FindObject,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findPagesByUrls": {
			Collection: Collection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpIn, Param: "urls", Type: registry.TStringSlice},
			},
		},
		"findAllPages": {
			Collection: Collection,
			Kind:       registry.FindObjects,
		},
		"updatePageLatest": {
			Collection: Collection,
			Kind:       registry.UpdateObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
			Set: []registry.SetField{
				{Field: "latest", Param: "latest", Type: registry.TInt},
			},
		},
		"deletePage": {
			Collection: Collection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
	}
	for name, op := range ops {
		if err := reg.Define(name, op); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the page for a normalized URL, or nil when unknown.
func (s *Store) Get(ctx context.Context, url string) (*domain.Page, error) {
	res, err := s.reg.Execute(ctx, "findPageByUrl", map[string]any{"url": url})
	if err != nil {
		return nil, err
	}
	if res.Object == nil {
		return nil, nil
	}
	var page domain.Page
	if err := storage.Decode(res.Object, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// All returns every page record. Serves the local term-ranking scan.
func (s *Store) All(ctx context.Context) ([]domain.Page, error) {
	res, err := s.reg.Execute(ctx, "findAllPages", nil)
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[domain.Page](res.Objects)
}

// EnsureStub creates a stub page on first contact with a URL. Existing
// pages (stub or full) are left untouched. Returns the page.
func (s *Store) EnsureStub(ctx context.Context, fullURL, title string) (*domain.Page, error) {
	url := domain.NormalizeURL(fullURL)

	page, err := s.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if page != nil {
		return page, nil
	}

	_, err = s.reg.Execute(ctx, "createPage", map[string]any{
		"url":       url,
		"fullUrl":   fullURL,
		"pageTitle": title,
		"isStub":    true,
	})
	if err != nil {
		return nil, fmt.Errorf("create stub page %s: %w", url, err)
	}
	s.log.Debug("created stub page", logger.String("url", url))

	return &domain.Page{URL: url, FullURL: fullURL, Title: title, IsStub: true}, nil
}

// AddVisit bumps the page's latest-interaction time. Pages without a visit
// never appear in results, so callers add one after creating a stub.
func (s *Store) AddVisit(ctx context.Context, url string, t int64) error {
	_, err := s.reg.Execute(ctx, "updatePageLatest", map[string]any{
		"url":    url,
		"latest": t,
	})
	return err
}

// Index promotes a stub to a full record.
func (s *Store) Index(ctx context.Context, page domain.Page) error {
	page.IsStub = false
	doc := map[string]any{
		"url":       page.URL,
		"fullUrl":   page.FullURL,
		"pageTitle": page.Title,
		"isStub":    false,
		"latest":    page.Latest,
	}
	_, err := s.reg.Execute(ctx, "createPage", doc)
	return err
}

// MapURLsToPages resolves page URLs to full records, omitting any URL that
// does not resolve. This is the single batched page-resolution call every
// search mode funnels through.
func (s *Store) MapURLsToPages(ctx context.Context, req MapRequest) ([]domain.AnnotPage, error) {
	if len(req.PageURLs) == 0 {
		return nil, nil
	}

	res, err := s.reg.Execute(ctx, "findPagesByUrls", map[string]any{"urls": req.PageURLs})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.Page](res.Objects)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]domain.Page, len(found))
	for _, page := range found {
		byURL[page.URL] = page
	}

	latestByURL := make(map[string]int64)
	if len(req.LatestTimes) == len(req.PageURLs) {
		for i, url := range req.PageURLs {
			latestByURL[url] = req.LatestTimes[i]
		}
	}

	out := make([]domain.AnnotPage, 0, len(found))
	for _, url := range req.PageURLs {
		page, ok := byURL[url]
		if !ok {
			continue
		}
		if !req.Base64Img {
			page.Thumbnail = ""
		}

		display := page.Latest
		if t, ok := latestByURL[url]; ok {
			display = t
		} else if req.UpperTimeBound > 0 && display > req.UpperTimeBound {
			display = req.UpperTimeBound
		}

		out = append(out, domain.AnnotPage{Page: page, DisplayTime: display})
	}
	return out, nil
}
