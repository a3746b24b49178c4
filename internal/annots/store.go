// Package annots implements the annotation store: highlight/comment records
// keyed by a synthetic URL derived from the annotated page, plus per-
// annotation bookmarks and list membership.
package annots

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
	"github.com/webstash/webstash/internal/tags"
)

const (
	Collection      = "annotations"
	BookmarksColl   = "annotBookmarks"
	ListEntriesColl = "annotListEntries"
)

// ListFinder is the slice of the list store the annotation store needs:
// membership inserts hard-fail on unknown lists.
type ListFinder interface {
	FetchListByID(ctx context.Context, id int64) (*domain.List, error)
}

// CreateRequest carries the caller-supplied fields of a new annotation.
type CreateRequest struct {
	PageURL   string         `json:"pageUrl"`
	PageTitle string         `json:"pageTitle"`
	Body      string         `json:"body,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	Selector  map[string]any `json:"selector,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
}

type Store struct {
	reg   *registry.Registry
	pages *pages.Store
	tags  *tags.Store
	lists ListFinder
	log   logger.Logger

	// now is swappable for tests; urlMu/lastStamp keep same-millisecond
	// annotation URLs from colliding in-process.
	now       func() time.Time
	urlMu     sync.Mutex
	lastStamp int64
}

func NewStore(reg *registry.Registry, pageStore *pages.Store, tagStore *tags.Store, lists ListFinder, log logger.Logger) (*Store, error) {
	s := &Store{reg: reg, pages: pageStore, tags: tagStore, lists: lists, log: log, now: time.Now}

	schemas := []storage.Schema{
		{
			Name:    Collection,
			Version: time.Date(2019, 2, 19, 0, 0, 0, 0, time.UTC),
			PK:      []string{"url"},
		},
		{
			Name:    BookmarksColl,
			Version: time.Date(2019, 2, 19, 0, 0, 0, 0, time.UTC),
			PK:      []string{"url"},
		},
		{
			Name:    ListEntriesColl,
			Version: time.Date(2019, 9, 30, 0, 0, 0, 0, time.UTC),
			PK:      []string{"listId", "url"},
		},
	}
	for _, schema := range schemas {
		if err := reg.RegisterCollection(schema); err != nil {
			return nil, err
		}
	}

	ops := map[string]registry.Operation{
		"createAnnotation": {
			Collection: Collection,
			Kind:       registry.CreateObject,
			Set: []registry.SetField{
				{Field: "url", Param: "url", Type: registry.TString},
				{Field: "pageUrl", Param: "pageUrl", Type: registry.TString},
				{Field: "pageTitle", Param: "pageTitle", Type: registry.TString, Optional: true},
				{Field: "body", Param: "body", Type: registry.TString, Optional: true},
				{Field: "comment", Param: "comment", Type: registry.TString, Optional: true},
				{Field: "selector", Param: "selector", Type: registry.TAny, Optional: true},
				{Field: "createdWhen", Param: "createdWhen", Type: registry.TInt},
				{Field: "lastEdited", Param: "lastEdited", Type: registry.TInt},
			},
		},
		"findAnnotationByPk": {
			Collection: Collection,
			Kind:       registry.FindObject,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findAnnotationsByPage": {
			Collection: Collection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "pageUrl", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findAnnotationsByDateRange": {
			Collection: Collection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "lastEdited", Op: storage.OpGte, Param: "startDate", Type: registry.TInt, Optional: true},
				{Field: "lastEdited", Op: storage.OpLte, Param: "endDate", Type: registry.TInt, Optional: true},
			},
		},
		"updateAnnotation": {
			Collection: Collection,
			Kind:       registry.UpdateObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
			Set: []registry.SetField{
				{Field: "comment", Param: "comment", Type: registry.TString},
				{Field: "lastEdited", Now: true},
			},
		},
		"deleteAnnotation": {
			Collection: Collection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"toggleAnnotBookmark": {
			Collection: BookmarksColl,
			Kind:       registry.TogglePresence,
			Set: []registry.SetField{
				{Field: "url", Param: "url", Type: registry.TString},
				{Field: "createdAt", Now: true},
			},
		},
		"findAnnotBookmarkByUrl": {
			Collection: BookmarksColl,
			Kind:       registry.FindObject,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findAnnotBookmarksByUrls": {
			Collection: BookmarksColl,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpIn, Param: "urls", Type: registry.TStringSlice},
			},
		},
		"createAnnotListEntry": {
			Collection: ListEntriesColl,
			Kind:       registry.CreateObject,
			Set: []registry.SetField{
				{Field: "listId", Param: "listId", Type: registry.TInt},
				{Field: "url", Param: "url", Type: registry.TString},
				{Field: "createdAt", Now: true},
			},
		},
		"deleteAnnotListEntry": {
			Collection: ListEntriesColl,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpEq, Param: "listId", Type: registry.TInt},
				{Field: "url", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findAnnotListEntriesByLists": {
			Collection: ListEntriesColl,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpIn, Param: "listIds", Type: registry.TIntSlice},
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

// annotationURL derives the synthetic annotation key from the page URL and
// the creation timestamp, bumping past the previous stamp when two creates
// land in the same millisecond.
func (s *Store) annotationURL(pageURL string) (string, int64) {
	s.urlMu.Lock()
	defer s.urlMu.Unlock()

	stamp := s.now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	s.lastStamp = stamp
	return fmt.Sprintf("%s/#%d", pageURL, stamp), stamp
}

// CreateAnnotation stores a new annotation and returns its URL. The page
// gets a stub record (with a visit) when unknown; requested tags attach to
// the annotation URL.
func (s *Store) CreateAnnotation(ctx context.Context, req CreateRequest) (string, error) {
	if req.PageURL == "" {
		return "", &domain.ValidationError{Param: "pageUrl", Reason: "required parameter missing"}
	}
	if req.Body == "" && req.Comment == "" {
		return "", &domain.ValidationError{Param: "body", Reason: "annotation needs a body or a comment"}
	}

	page, err := s.pages.EnsureStub(ctx, req.PageURL, req.PageTitle)
	if err != nil {
		return "", err
	}
	if page.Latest == 0 {
		if err := s.pages.AddVisit(ctx, page.URL, s.now().UnixMilli()); err != nil {
			return "", err
		}
	}

	url, stamp := s.annotationURL(page.URL)
	params := map[string]any{
		"url":         url,
		"pageUrl":     page.URL,
		"pageTitle":   req.PageTitle,
		"createdWhen": stamp,
		"lastEdited":  stamp,
	}
	if req.Body != "" {
		params["body"] = req.Body
	}
	if req.Comment != "" {
		params["comment"] = req.Comment
	}
	if req.Selector != nil {
		params["selector"] = req.Selector
	}
	if _, err := s.reg.Execute(ctx, "createAnnotation", params); err != nil {
		return "", err
	}

	for _, tag := range req.Tags {
		if err := s.tags.AddAnnotationTag(ctx, tag, url); err != nil {
			return "", err
		}
	}
	s.log.Debug("created annotation",
		logger.String("url", url),
		logger.String("page", page.URL))
	return url, nil
}

// EditAnnotation replaces an annotation's comment and bumps lastEdited.
func (s *Store) EditAnnotation(ctx context.Context, url, comment string) error {
	res, err := s.reg.Execute(ctx, "updateAnnotation", map[string]any{
		"url":     url,
		"comment": comment,
	})
	if err != nil {
		return err
	}
	if res.Count == 0 {
		return &domain.NotFoundError{Kind: "annotation", ID: url}
	}
	return nil
}

// DeleteAnnotation removes the annotation record only. Its tags, bookmark
// and list entries become orphans for the reconciler to sweep.
func (s *Store) DeleteAnnotation(ctx context.Context, url string) error {
	res, err := s.reg.Execute(ctx, "deleteAnnotation", map[string]any{"url": url})
	if err != nil {
		return err
	}
	if res.Count == 0 {
		return &domain.NotFoundError{Kind: "annotation", ID: url}
	}
	return nil
}

// GetAnnotationByPk returns one annotation, or nil when unknown.
func (s *Store) GetAnnotationByPk(ctx context.Context, url string) (*domain.Annotation, error) {
	res, err := s.reg.Execute(ctx, "findAnnotationByPk", map[string]any{"url": url})
	if err != nil {
		return nil, err
	}
	if res.Object == nil {
		return nil, nil
	}
	var annot domain.Annotation
	if err := storage.Decode(res.Object, &annot); err != nil {
		return nil, err
	}
	return &annot, nil
}

// GetAnnotationsByPage returns every annotation on a page.
func (s *Store) GetAnnotationsByPage(ctx context.Context, url string) ([]domain.Annotation, error) {
	res, err := s.reg.Execute(ctx, "findAnnotationsByPage", map[string]any{
		"url": domain.NormalizeURL(url),
	})
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[domain.Annotation](res.Objects)
}

// ListAnnotationsInRange returns annotations whose lastEdited falls inside
// [start, end]. Zero bounds are open.
func (s *Store) ListAnnotationsInRange(ctx context.Context, start, end int64) ([]domain.Annotation, error) {
	params := map[string]any{}
	if start > 0 {
		params["startDate"] = start
	}
	if end > 0 {
		params["endDate"] = end
	}
	res, err := s.reg.Execute(ctx, "findAnnotationsByDateRange", params)
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[domain.Annotation](res.Objects)
}

// GetTagsByAnnotationURL returns the tag names on one annotation.
func (s *Store) GetTagsByAnnotationURL(ctx context.Context, url string) ([]string, error) {
	byURL, err := s.tags.FetchTagsByURLs(ctx, []string{url})
	if err != nil {
		return nil, err
	}
	return byURL[url], nil
}

// ToggleAnnotBookmark flips the annotation's bookmark and reports the new
// state: true when the toggle created a bookmark.
func (s *Store) ToggleAnnotBookmark(ctx context.Context, url string) (bool, error) {
	res, err := s.reg.Execute(ctx, "toggleAnnotBookmark", map[string]any{"url": url})
	if err != nil {
		return false, err
	}
	return res.Created, nil
}

// AnnotHasBookmark reports whether the annotation is bookmarked.
func (s *Store) AnnotHasBookmark(ctx context.Context, url string) (bool, error) {
	res, err := s.reg.Execute(ctx, "findAnnotBookmarkByUrl", map[string]any{"url": url})
	if err != nil {
		return false, err
	}
	return res.Object != nil, nil
}

// FetchBookmarkedURLs returns which of the given annotation URLs carry a
// bookmark.
func (s *Store) FetchBookmarkedURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}
	res, err := s.reg.Execute(ctx, "findAnnotBookmarksByUrls", map[string]any{"urls": urls})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.Bookmark](res.Objects)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(found))
	for _, bm := range found {
		out[bm.URL] = true
	}
	return out, nil
}

// InsertAnnotToList adds an annotation to a list. Unlike the page
// membership path, an unknown list is a hard error here.
func (s *Store) InsertAnnotToList(ctx context.Context, listID int64, url string) error {
	list, err := s.lists.FetchListByID(ctx, listID)
	if err != nil {
		return err
	}
	if list == nil {
		return &domain.NotFoundError{Kind: "list", ID: listID}
	}
	_, err = s.reg.Execute(ctx, "createAnnotListEntry", map[string]any{
		"listId": listID,
		"url":    url,
	})
	return err
}

// RemoveAnnotFromList removes an annotation from a list.
func (s *Store) RemoveAnnotFromList(ctx context.Context, listID int64, url string) error {
	_, err := s.reg.Execute(ctx, "deleteAnnotListEntry", map[string]any{
		"listId": listID,
		"url":    url,
	})
	return err
}

// AnnotURLsInLists returns the set of annotation URLs belonging to any of
// the given lists.
func (s *Store) AnnotURLsInLists(ctx context.Context, listIDs []int64) (map[string]bool, error) {
	if len(listIDs) == 0 {
		return map[string]bool{}, nil
	}
	res, err := s.reg.Execute(ctx, "findAnnotListEntriesByLists", map[string]any{"listIds": listIDs})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.AnnotListEntry](res.Objects)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(found))
	for _, entry := range found {
		out[entry.URL] = true
	}
	return out, nil
}
