// Package tags implements free-form tagging of pages and annotations. A tag
// is a bare (name, url) pair; the same collection serves both page URLs and
// annotation URLs.
package tags

import (
	"context"
	"sync"
	"time"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
)

const Collection = "tags"

type Store struct {
	reg   *registry.Registry
	pages *pages.Store
	log   logger.Logger

	now func() time.Time
}

func NewStore(reg *registry.Registry, pageStore *pages.Store, log logger.Logger) (*Store, error) {
	s := &Store{reg: reg, pages: pageStore, log: log, now: time.Now}

	err := reg.RegisterCollection(storage.Schema{
		Name:    Collection,
		Version: time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC),
		PK:      []string{"name", "url"},
	})
	if err != nil {
		return nil, err
	}

	ops := map[string]registry.Operation{
		"createTag": {
			Collection: Collection,
			Kind:       registry.CreateObject,
			Set: []registry.SetField{
				{Field: "name", Param: "name", Type: registry.TString},
				{Field: "url", Param: "url", Type: registry.TString},
			},
		},
		"findTagsByUrl": {
			Collection: Collection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findTagsByUrls": {
			Collection: Collection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpIn, Param: "urls", Type: registry.TStringSlice},
			},
		},
		"findTagsByName": {
			Collection: Collection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "name", Op: storage.OpEq, Param: "name", Type: registry.TString},
			},
		},
		"deleteTag": {
			Collection: Collection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "name", Op: storage.OpEq, Param: "name", Type: registry.TString},
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

// SetNow overrides the clock. Test hook.
func (s *Store) SetNow(now func() time.Time) { s.now = now }

// FetchPageTags returns the tag names attached to a URL.
func (s *Store) FetchPageTags(ctx context.Context, url string) ([]string, error) {
	res, err := s.reg.Execute(ctx, "findTagsByUrl", map[string]any{
		"url": domain.NormalizeURL(url),
	})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.Tag](res.Objects)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(found))
	for i, tag := range found {
		names[i] = tag.Name
	}
	return names, nil
}

// FetchTagsByURLs returns all tags for a batch of URLs, grouped by URL.
// The search enricher's bulk lookup.
func (s *Store) FetchTagsByURLs(ctx context.Context, urls []string) (map[string][]string, error) {
	if len(urls) == 0 {
		return map[string][]string{}, nil
	}
	res, err := s.reg.Execute(ctx, "findTagsByUrls", map[string]any{"urls": urls})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.Tag](res.Objects)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, tag := range found {
		out[tag.URL] = append(out[tag.URL], tag.Name)
	}
	return out, nil
}

// AddTag tags a page, creating a stub page (with a visit) when the URL is
// unknown. Re-adding an existing tag is a no-op, never an error.
func (s *Store) AddTag(ctx context.Context, name, fullURL string) error {
	page, err := s.pages.EnsureStub(ctx, fullURL, "")
	if err != nil {
		return err
	}
	if page.Latest == 0 {
		if err := s.pages.AddVisit(ctx, page.URL, s.now().UnixMilli()); err != nil {
			return err
		}
	}
	_, err = s.reg.Execute(ctx, "createTag", map[string]any{
		"name": name,
		"url":  page.URL,
	})
	return err
}

// AddAnnotationTag tags an annotation URL directly; annotation URLs are
// synthetic and never get a page record.
func (s *Store) AddAnnotationTag(ctx context.Context, name, annotURL string) error {
	_, err := s.reg.Execute(ctx, "createTag", map[string]any{
		"name": name,
		"url":  annotURL,
	})
	return err
}

// DelTag removes one tag from a URL. Removing an absent tag is a no-op.
func (s *Store) DelTag(ctx context.Context, name, url string) error {
	_, err := s.reg.Execute(ctx, "deleteTag", map[string]any{
		"name": name,
		"url":  domain.NormalizeURL(url),
	})
	return err
}

// AddTagsToOpenTabs tags a batch of open tabs concurrently. Failures on
// individual tabs are logged and do not abort the rest.
func (s *Store) AddTagsToOpenTabs(ctx context.Context, name string, urls []string) error {
	var wg sync.WaitGroup
	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := s.AddTag(ctx, name, url); err != nil {
				s.log.Warn("failed to tag tab",
					logger.String("tag", name),
					logger.String("url", url),
					logger.Error(err))
			}
		}(url)
	}
	wg.Wait()
	return nil
}

// DelTagsFromOpenTabs removes a tag from a batch of open tabs, best effort.
func (s *Store) DelTagsFromOpenTabs(ctx context.Context, name string, urls []string) error {
	var wg sync.WaitGroup
	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := s.DelTag(ctx, name, url); err != nil {
				s.log.Warn("failed to untag tab",
					logger.String("tag", name),
					logger.String("url", url),
					logger.Error(err))
			}
		}(url)
	}
	wg.Wait()
	return nil
}
