// Package lists implements the custom list store: named groupings of pages
// with idempotent membership, cascading deletes, case-insensitive name
// lookups and fuzzy name suggestions.
package lists

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
	"github.com/webstash/webstash/internal/suggest"
)

const (
	ListsCollection   = "customLists"
	EntriesCollection = "pageListEntries"

	// suggestionLimit caps fuzzy name suggestions.
	suggestionLimit = 5
)

// RemoveCounts reports what a list deletion removed. The two deletes are
// sequential calls, not one transaction; a crash between them can leave
// entries behind until the reconciler sweeps them.
type RemoveCounts struct {
	Lists   int `json:"lists"`
	Entries int `json:"entries"`
}

// Tab is one open-tab reference for bulk membership operations.
type Tab struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type Store struct {
	reg   *registry.Registry
	pages *pages.Store
	log   logger.Logger

	// now is swappable for tests; idMu/lastID guard timestamp ID
	// generation against same-millisecond collisions in-process.
	now    func() time.Time
	idMu   sync.Mutex
	lastID int64
}

func NewStore(reg *registry.Registry, pageStore *pages.Store, log logger.Logger) (*Store, error) {
	s := &Store{reg: reg, pages: pageStore, log: log, now: time.Now}

	schemas := []storage.Schema{
		{
			Name:    ListsCollection,
			Version: time.Date(2018, 7, 12, 0, 0, 0, 0, time.UTC),
			PK:      []string{"id"},
			Unique:  []string{"name"},
		},
		{
			Name:    EntriesCollection,
			Version: time.Date(2018, 7, 12, 0, 0, 0, 0, time.UTC),
			PK:      []string{"listId", "pageUrl"},
		},
	}
	for _, schema := range schemas {
		if err := reg.RegisterCollection(schema); err != nil {
			return nil, err
		}
	}

	ops := map[string]registry.Operation{
		"createList": {
			Collection: ListsCollection,
			Kind:       registry.CreateObject,
			Set: []registry.SetField{
				{Field: "id", Param: "id", Type: registry.TInt},
				{Field: "name", Param: "name", Type: registry.TString},
				{Field: "isDeletable", Param: "isDeletable", Type: registry.TBool},
				{Field: "isNestable", Param: "isNestable", Type: registry.TBool},
				{Field: "createdAt", Now: true},
			},
		},
		"createListEntry": {
			Collection: EntriesCollection,
			Kind:       registry.CreateObject,
			Set: []registry.SetField{
				{Field: "listId", Param: "listId", Type: registry.TInt},
				{Field: "pageUrl", Param: "pageUrl", Type: registry.TString},
				{Field: "fullUrl", Param: "fullUrl", Type: registry.TString},
				{Field: "createdAt", Now: true},
			},
		},
		"findListById": {
			Collection: ListsCollection,
			Kind:       registry.FindObject,
			Where: []registry.Cond{
				{Field: "id", Op: storage.OpEq, Param: "id", Type: registry.TInt},
			},
		},
		"findListsByIds": {
			Collection: ListsCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "id", Op: storage.OpIn, Param: "includedIds", Type: registry.TIntSlice},
			},
		},
		"findListsExcluding": {
			Collection: ListsCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "id", Op: storage.OpNotIn, Param: "excludedIds", Type: registry.TIntSlice},
			},
			LimitParam: "limit",
			SkipParam:  "skip",
		},
		"findListByNameIgnoreCase": {
			Collection: ListsCollection,
			Kind:       registry.FindObject,
			Where: []registry.Cond{
				{Field: "name", Op: storage.OpEqFold, Param: "name", Type: registry.TString},
			},
		},
		"findListsByNames": {
			Collection: ListsCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "name", Op: storage.OpIn, Param: "names", Type: registry.TStringSlice},
			},
		},
		"findAllLists": {
			Collection: ListsCollection,
			Kind:       registry.FindObjects,
		},
		"findListEntriesByList": {
			Collection: EntriesCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpEq, Param: "listId", Type: registry.TInt},
			},
		},
		"findListEntriesByPage": {
			Collection: EntriesCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "pageUrl", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"findListEntriesByListIds": {
			Collection: EntriesCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpIn, Param: "listIds", Type: registry.TIntSlice},
			},
		},
		"findListEntriesByLists": {
			Collection: EntriesCollection,
			Kind:       registry.FindObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpIn, Param: "listIds", Type: registry.TIntSlice},
				{Field: "pageUrl", Op: storage.OpEq, Param: "url", Type: registry.TString},
			},
		},
		"updateListName": {
			Collection: ListsCollection,
			Kind:       registry.UpdateObjects,
			Where: []registry.Cond{
				{Field: "id", Op: storage.OpEq, Param: "id", Type: registry.TInt},
			},
			Set: []registry.SetField{
				{Field: "name", Param: "name", Type: registry.TString},
				{Field: "createdAt", Now: true},
			},
		},
		"deleteList": {
			Collection: ListsCollection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "id", Op: storage.OpEq, Param: "id", Type: registry.TInt},
			},
		},
		"deleteListEntriesByList": {
			Collection: EntriesCollection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpEq, Param: "listId", Type: registry.TInt},
			},
		},
		"deleteListEntry": {
			Collection: EntriesCollection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpEq, Param: "listId", Type: registry.TInt},
				{Field: "pageUrl", Op: storage.OpEq, Param: "pageUrl", Type: registry.TString},
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

// generateListID returns a now-ms ID, bumped past the previous one when two
// creations land in the same millisecond.
func (s *Store) generateListID() int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// CreateList creates a list and returns its generated ID. A name collision
// (case-insensitive) returns a domain.ConflictError.
func (s *Store) CreateList(ctx context.Context, name string) (int64, error) {
	id := s.generateListID()
	_, err := s.reg.Execute(ctx, "createList", map[string]any{
		"id":          id,
		"name":        name,
		"isDeletable": true,
		"isNestable":  true,
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateListName renames a list.
func (s *Store) UpdateListName(ctx context.Context, id int64, name string) error {
	res, err := s.reg.Execute(ctx, "updateListName", map[string]any{"id": id, "name": name})
	if err != nil {
		return err
	}
	if res.Count == 0 {
		return &domain.NotFoundError{Kind: "list", ID: id}
	}
	return nil
}

// RemoveList deletes a list and all of its entries, returning counts of
// each.
func (s *Store) RemoveList(ctx context.Context, id int64) (RemoveCounts, error) {
	listRes, err := s.reg.Execute(ctx, "deleteList", map[string]any{"id": id})
	if err != nil {
		return RemoveCounts{}, err
	}
	entryRes, err := s.reg.Execute(ctx, "deleteListEntriesByList", map[string]any{"listId": id})
	if err != nil {
		return RemoveCounts{Lists: listRes.Count}, err
	}
	return RemoveCounts{Lists: listRes.Count, Entries: entryRes.Count}, nil
}

// FetchListByID returns a list with its member pages joined in, or nil when
// the ID is unknown.
func (s *Store) FetchListByID(ctx context.Context, id int64) (*domain.List, error) {
	res, err := s.reg.Execute(ctx, "findListById", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if res.Object == nil {
		return nil, nil
	}
	var list domain.List
	if err := storage.Decode(res.Object, &list); err != nil {
		return nil, err
	}

	entries, err := s.FetchListPagesByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prepareList(&list, entryFullURLs(entries), len(entries) > 0)
	return &list, nil
}

// FetchAllLists returns lists excluding the given IDs, paginated, each with
// member pages joined in.
func (s *Store) FetchAllLists(ctx context.Context, excludedIDs []int64, limit, skip int) ([]domain.List, error) {
	if excludedIDs == nil {
		excludedIDs = []int64{}
	}
	res, err := s.reg.Execute(ctx, "findListsExcluding", map[string]any{
		"excludedIds": excludedIDs,
		"limit":       limit,
		"skip":        skip,
	})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.List](res.Objects)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return found, nil
	}

	ids := make([]int64, len(found))
	for i, list := range found {
		ids[i] = list.ID
	}
	entriesByList, err := s.entriesByListIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range found {
		urls := entriesByList[found[i].ID]
		prepareList(&found[i], urls, len(urls) > 0)
	}
	return found, nil
}

// AllIDs returns every list ID. Cheap form for the orphan sweep.
func (s *Store) AllIDs(ctx context.Context) ([]int64, error) {
	res, err := s.reg.Execute(ctx, "findAllLists", nil)
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.List](res.Objects)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(found))
	for i, list := range found {
		ids[i] = list.ID
	}
	return ids, nil
}

// FetchListPagesByID returns the raw entries of a list.
func (s *Store) FetchListPagesByID(ctx context.Context, id int64) ([]domain.ListEntry, error) {
	res, err := s.reg.Execute(ctx, "findListEntriesByList", map[string]any{"listId": id})
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[domain.ListEntry](res.Objects)
}

// FetchListPagesByURL returns every list the given page belongs to, with
// the page's sibling entries joined in.
func (s *Store) FetchListPagesByURL(ctx context.Context, url string) ([]domain.List, error) {
	url = domain.NormalizeURL(url)
	res, err := s.reg.Execute(ctx, "findListEntriesByPage", map[string]any{"url": url})
	if err != nil {
		return nil, err
	}
	entries, err := storage.DecodeAll[domain.ListEntry](res.Objects)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]bool)
	for _, entry := range entries {
		if !seen[entry.ListID] {
			seen[entry.ListID] = true
			ids = append(ids, entry.ListID)
		}
	}

	listRes, err := s.reg.Execute(ctx, "findListsByIds", map[string]any{"includedIds": ids})
	if err != nil {
		return nil, err
	}
	found, err := storage.DecodeAll[domain.List](listRes.Objects)
	if err != nil {
		return nil, err
	}

	entriesByList, err := s.entriesByListIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range found {
		urls := entriesByList[found[i].ID]
		prepareList(&found[i], urls, len(urls) > 0)
	}
	return found, nil
}

// FetchListByNames returns lists whose names match exactly.
func (s *Store) FetchListByNames(ctx context.Context, names []string) ([]domain.List, error) {
	res, err := s.reg.Execute(ctx, "findListsByNames", map[string]any{"names": names})
	if err != nil {
		return nil, err
	}
	return storage.DecodeAll[domain.List](res.Objects)
}

// FetchListIgnoreCase returns the single list matching a name
// case-insensitively, or nil.
func (s *Store) FetchListIgnoreCase(ctx context.Context, name string) (*domain.List, error) {
	res, err := s.reg.Execute(ctx, "findListByNameIgnoreCase", map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if res.Object == nil {
		return nil, nil
	}
	var list domain.List
	if err := storage.Decode(res.Object, &list); err != nil {
		return nil, err
	}
	prepareList(&list, nil, false)
	return &list, nil
}

// InsertPageToList adds a page to a list. Adding to a non-existent list is
// a silent no-op: bulk tab-to-list flows stay lenient, unlike the
// annotation membership path which errors. Duplicate inserts merge on the
// (listId, pageUrl) key and never error.
func (s *Store) InsertPageToList(ctx context.Context, listID int64, fullURL string) error {
	list, err := s.reg.Execute(ctx, "findListById", map[string]any{"id": listID})
	if err != nil {
		return err
	}
	if list.Object == nil {
		s.log.Debug("insert into unknown list skipped", logger.Int64("list_id", listID))
		return nil
	}

	_, err = s.reg.Execute(ctx, "createListEntry", map[string]any{
		"listId":  listID,
		"pageUrl": domain.NormalizeURL(fullURL),
		"fullUrl": fullURL,
	})
	return err
}

// RemovePageFromList removes a page from a list.
func (s *Store) RemovePageFromList(ctx context.Context, listID int64, url string) error {
	_, err := s.reg.Execute(ctx, "deleteListEntry", map[string]any{
		"listId":  listID,
		"pageUrl": domain.NormalizeURL(url),
	})
	return err
}

// AddTabsToList adds a batch of open tabs to a list: each tab gets a stub
// page (with a visit, so it surfaces in search) and an entry. Tabs run
// concurrently and independently; a failure on one tab does not roll back
// the others, the batch resolves once every attempt finished.
func (s *Store) AddTabsToList(ctx context.Context, listID int64, tabs []Tab) error {
	now := s.now().UnixMilli()

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, tab := range tabs {
		wg.Add(1)
		go func(tab Tab) {
			defer wg.Done()
			if err := s.addTab(ctx, listID, tab, now); err != nil {
				s.log.Warn("failed to add tab to list",
					logger.Int64("list_id", listID),
					logger.String("url", tab.URL),
					logger.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(tab)
	}
	wg.Wait()

	if failed > 0 {
		s.log.Warn("add tabs to list finished with failures",
			logger.Int64("list_id", listID),
			logger.Int("failed", failed),
			logger.Int("total", len(tabs)))
	}
	return nil
}

func (s *Store) addTab(ctx context.Context, listID int64, tab Tab, now int64) error {
	page, err := s.pages.EnsureStub(ctx, tab.URL, tab.Title)
	if err != nil {
		return err
	}
	// Add a visit if the page has none, else it won't appear in results.
	if page.Latest == 0 {
		if err := s.pages.AddVisit(ctx, page.URL, now); err != nil {
			return err
		}
	}
	return s.InsertPageToList(ctx, listID, tab.URL)
}

// RemoveTabsFromList removes a batch of open tabs from a list, best effort.
func (s *Store) RemoveTabsFromList(ctx context.Context, listID int64, tabs []Tab) error {
	var wg sync.WaitGroup
	for _, tab := range tabs {
		wg.Add(1)
		go func(tab Tab) {
			defer wg.Done()
			if err := s.RemovePageFromList(ctx, listID, tab.URL); err != nil {
				s.log.Warn("failed to remove tab from list",
					logger.Int64("list_id", listID),
					logger.String("url", tab.URL),
					logger.Error(err))
			}
		}(tab)
	}
	wg.Wait()
	return nil
}

// InsertMissingLists ensures a list exists for every name, creating the
// missing ones, and returns the IDs in request order. A concurrent creator
// winning the name race surfaces as a conflict, which is recovered by
// re-fetching the now-existing list.
func (s *Store) InsertMissingLists(ctx context.Context, names []string) ([]int64, error) {
	existing, err := s.FetchListByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	idsByName := make(map[string]int64, len(names))
	for _, list := range existing {
		idsByName[list.Name] = list.ID
	}

	for _, name := range names {
		if _, ok := idsByName[name]; ok {
			continue
		}
		id, err := s.CreateList(ctx, name)
		if err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return nil, err
			}
			list, ferr := s.FetchListIgnoreCase(ctx, name)
			if ferr != nil {
				return nil, ferr
			}
			if list == nil {
				return nil, fmt.Errorf("list %q: conflict on create but no list found: %w", name, err)
			}
			id = list.ID
		}
		idsByName[name] = id
	}

	out := make([]int64, len(names))
	for i, name := range names {
		out[i] = idsByName[name]
	}
	return out, nil
}

// FetchListNameSuggestions returns up to 5 fuzzy name matches, each
// reporting whether the given page is already a member.
func (s *Store) FetchListNameSuggestions(ctx context.Context, name, url string) ([]domain.List, error) {
	res, err := s.reg.Execute(ctx, "findAllLists", nil)
	if err != nil {
		return nil, err
	}
	all, err := storage.DecodeAll[domain.List](res.Objects)
	if err != nil {
		return nil, err
	}

	entries := make([]suggest.Entry, len(all))
	for i, list := range all {
		entries[i] = suggest.Entry{PK: list.ID, Text: list.Name}
	}
	candidates := suggest.Top(name, suggestionLimit, entries)
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.PK.(int64)
	}

	entryRes, err := s.reg.Execute(ctx, "findListEntriesByLists", map[string]any{
		"listIds": ids,
		"url":     domain.NormalizeURL(url),
	})
	if err != nil {
		return nil, err
	}
	pageEntries, err := storage.DecodeAll[domain.ListEntry](entryRes.Objects)
	if err != nil {
		return nil, err
	}
	urlsByList := make(map[int64][]string)
	for _, entry := range pageEntries {
		urlsByList[entry.ListID] = append(urlsByList[entry.ListID], entry.FullURL)
	}

	out := make([]domain.List, len(candidates))
	for i, c := range candidates {
		urls := urlsByList[ids[i]]
		list := domain.List{ID: ids[i], Name: c.Text}
		prepareList(&list, urls, urls != nil)
		out[i] = list
	}
	return out, nil
}

func (s *Store) entriesByListIDs(ctx context.Context, ids []int64) (map[int64][]string, error) {
	res, err := s.reg.Execute(ctx, "findListEntriesByListIds", map[string]any{"listIds": ids})
	if err != nil {
		return nil, err
	}
	entries, err := storage.DecodeAll[domain.ListEntry](res.Objects)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]string)
	for _, entry := range entries {
		out[entry.ListID] = append(out[entry.ListID], entry.FullURL)
	}
	return out, nil
}

func entryFullURLs(entries []domain.ListEntry) []string {
	urls := make([]string, len(entries))
	for i, entry := range entries {
		urls[i] = entry.FullURL
	}
	return urls
}

// prepareList attaches the display fields joined onto a fetched list.
func prepareList(list *domain.List, pageURLs []string, active bool) {
	if pageURLs == nil {
		pageURLs = []string{}
	}
	list.Pages = pageURLs
	list.Active = active
}
