package search

import (
	"context"
	"testing"
	"time"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/lists"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
	"github.com/webstash/webstash/internal/tags"
)

type fixture struct {
	reg    *registry.Registry
	pages  *pages.Store
	tags   *tags.Store
	lists  *lists.Store
	annots *annots.Store
	engine *Engine
	finds  map[string]int
}

// countingBackend tallies Find calls per collection so tests can assert a
// lookup was batched rather than issued per result row.
type countingBackend struct {
	storage.Backend
	finds map[string]int
}

func (b *countingBackend) Find(ctx context.Context, collection string, q storage.Query) ([]storage.Object, error) {
	b.finds[collection]++
	return b.Backend.Find(ctx, collection, q)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	backend := &countingBackend{Backend: storage.NewMemory(), finds: map[string]int{}}
	reg := registry.New(backend, log)

	pageStore, err := pages.NewStore(reg, log)
	if err != nil {
		t.Fatal(err)
	}
	listStore, err := lists.NewStore(reg, pageStore, log)
	if err != nil {
		t.Fatal(err)
	}
	tagStore, err := tags.NewStore(reg, pageStore, log)
	if err != nil {
		t.Fatal(err)
	}
	annotStore, err := annots.NewStore(reg, pageStore, tagStore, listStore, log)
	if err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(
		pageStore,
		NewLister(annotStore, tagStore),
		NewEnricher(annotStore, tagStore),
		LocalLegacySearch(pageStore, tagStore, listStore),
		log,
	)
	return &fixture{reg: reg, pages: pageStore, tags: tagStore, lists: listStore, annots: annotStore, engine: engine, finds: backend.finds}
}

func (f *fixture) resetFinds() {
	for k := range f.finds {
		delete(f.finds, k)
	}
}

// addAnnot creates an annotation stamped at the given time.
func (f *fixture) addAnnot(t *testing.T, at time.Time, req annots.CreateRequest) string {
	t.Helper()
	f.annots.SetNow(func() time.Time { return at })
	url, err := f.annots.CreateAnnotation(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	return url
}

func TestSearchByDayClusters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC)

	f.addAnnot(t, day1, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "older note"})
	f.addAnnot(t, day2, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "newer note"})
	f.addAnnot(t, day2.Add(time.Hour), annots.CreateRequest{PageURL: "https://b.example.com", Comment: "other page"})

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(res.AnnotsByDay) != 2 {
		t.Fatalf("got %d day buckets, want 2", len(res.AnnotsByDay))
	}

	// Newest day first.
	wantDay2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	wantDay1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if res.AnnotsByDay[0].Day != wantDay2 {
		t.Errorf("first bucket day = %d, want %d", res.AnnotsByDay[0].Day, wantDay2)
	}
	if res.AnnotsByDay[1].Day != wantDay1 {
		t.Errorf("second bucket day = %d, want %d", res.AnnotsByDay[1].Day, wantDay1)
	}

	// Day 2 has both pages grouped separately.
	if len(res.AnnotsByDay[0].Pages) != 2 {
		t.Errorf("newest day has %d page groups, want 2", len(res.AnnotsByDay[0].Pages))
	}

	if len(res.Docs) != 2 {
		t.Errorf("got %d docs, want 2", len(res.Docs))
	}
	for _, doc := range res.Docs {
		if len(doc.Annotations) == 0 {
			t.Errorf("doc %s carries no annotations", doc.URL)
		}
	}
}

func TestSearchTagFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "tagged", Tags: []string{"go"}})
	f.addAnnot(t, at.Add(time.Minute), annots.CreateRequest{PageURL: "https://b.example.com", Comment: "excluded", Tags: []string{"spam"}})

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TagsInc: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 1 || res.Docs[0].URL != "a.example.com" {
		t.Errorf("tag inclusion: docs = %v, want only a.example.com", docURLs(res))
	}

	res, err = f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TagsExc: []string{"spam"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, doc := range res.Docs {
		if doc.URL == "b.example.com" {
			t.Error("excluded tag still present in results")
		}
	}
}

func TestSearchDropsEmptiedDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, day1, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "keep", Tags: []string{"go"}})
	f.addAnnot(t, day2, annots.CreateRequest{PageURL: "https://b.example.com", Comment: "drop", Tags: []string{"spam"}})

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TagsExc: []string{"spam"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AnnotsByDay) != 1 {
		t.Fatalf("got %d buckets, want 1 (emptied day dropped)", len(res.AnnotsByDay))
	}
	wantDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if res.AnnotsByDay[0].Day != wantDay {
		t.Errorf("remaining bucket day = %d, want %d", res.AnnotsByDay[0].Day, wantDay)
	}
}

func TestSearchBookmarksOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	marked := f.addAnnot(t, at, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "marked"})
	f.addAnnot(t, at.Add(time.Minute), annots.CreateRequest{PageURL: "https://b.example.com", Comment: "unmarked"})

	if _, err := f.annots.ToggleAnnotBookmark(ctx, marked); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{BookmarksOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 1 || res.Docs[0].URL != "a.example.com" {
		t.Fatalf("docs = %v, want only a.example.com", docURLs(res))
	}
	if len(res.Docs[0].Annotations) != 1 || !res.Docs[0].Annotations[0].HasBookmark {
		t.Error("bookmarked annotation not flagged in results")
	}
}

func TestSearchListFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	listID, err := f.lists.CreateList(ctx, "Research")
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	member := f.addAnnot(t, at, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "member"})
	f.addAnnot(t, at.Add(time.Minute), annots.CreateRequest{PageURL: "https://b.example.com", Comment: "outsider"})

	if err := f.annots.InsertAnnotToList(ctx, listID, member); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{Lists: []int64{listID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 1 || res.Docs[0].URL != "a.example.com" {
		t.Errorf("docs = %v, want only the list member's page", docURLs(res))
	}
}

func TestSearchReconcilesOrphanedPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, day, annots.CreateRequest{PageURL: "https://gone.example.com", Comment: "orphan"})
	f.addAnnot(t, day.Add(time.Minute), annots.CreateRequest{PageURL: "https://kept.example.com", Comment: "fine"})

	// Remove one page record out from under its annotation.
	if _, err := f.reg.Execute(ctx, "deletePage", map[string]any{"url": "gone.example.com"}); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Docs) != 1 || res.Docs[0].URL != "kept.example.com" {
		t.Fatalf("docs = %v, want only kept.example.com", docURLs(res))
	}
	for _, bucket := range res.AnnotsByDay {
		for _, group := range bucket.Pages {
			if group.PageURL == "gone.example.com" {
				t.Error("bucket still references the unresolved page")
			}
		}
		if len(bucket.Pages) == 0 {
			t.Error("empty day bucket left in results")
		}
	}
}

func TestSearchByTerms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{
		PageURL:   "https://a.example.com",
		PageTitle: "Plain title",
		Comment:   "notes about Kubernetes operators",
	})
	f.addAnnot(t, at.Add(time.Minute), annots.CreateRequest{
		PageURL:   "https://b.example.com",
		PageTitle: "Another page",
		Comment:   "nothing relevant",
	})

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TermsInc: []string{"kubernetes"}})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.AnnotsByDay) != 0 {
		t.Errorf("term mode returned %d day buckets, want none", len(res.AnnotsByDay))
	}
	if len(res.Docs) != 1 || res.Docs[0].URL != "a.example.com" {
		t.Fatalf("docs = %v, want only the page with matching annotations", docURLs(res))
	}
	if len(res.Docs[0].Annotations) != 1 {
		t.Errorf("got %d annotations, want 1", len(res.Docs[0].Annotations))
	}

	// All terms must match.
	res, err = f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TermsInc: []string{"kubernetes", "absent"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 0 {
		t.Errorf("partial term match returned %d docs, want 0", len(res.Docs))
	}
}

func TestEnricherCapsTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{
		PageURL: "https://a.example.com",
		Comment: "heavily tagged",
		Tags:    []string{"t1", "t2", "t3", "t4", "t5", "t6"},
	})

	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(res.Docs))
	}
	got := res.Docs[0].Annotations[0].Tags
	if len(got) != 4 {
		t.Errorf("result carries %d tags, want capped at 4", len(got))
	}
}

func TestClusterByDay(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC).UnixMilli()
	day2 := time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC).UnixMilli()

	buckets := ClusterByDay([]domain.Annotation{
		{URL: "p/#3", PageURL: "p", LastEdited: day2},
		{URL: "p/#2", PageURL: "p", LastEdited: day1},
		{URL: "q/#1", PageURL: "q", LastEdited: day1},
	})

	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Day <= buckets[1].Day {
		t.Error("buckets not ordered newest first")
	}
	if len(buckets[1].Pages) != 2 {
		t.Errorf("older day has %d groups, want 2", len(buckets[1].Pages))
	}
}

func TestTermSearchBatchesEnrichment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, page := range []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"} {
		f.addAnnot(t, at.Add(time.Duration(i)*time.Minute), annots.CreateRequest{
			PageURL: page,
			Comment: "shared phrase",
			Tags:    []string{"go"},
		})
	}

	f.resetFinds()
	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TermsInc: []string{"shared"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(res.Docs))
	}

	// Display data is fetched once for the whole result set, not per page.
	if got := f.finds[tags.Collection]; got != 1 {
		t.Errorf("tag lookups = %d, want 1 batched query", got)
	}
	if got := f.finds[annots.BookmarksColl]; got != 1 {
		t.Errorf("bookmark lookups = %d, want 1 batched query", got)
	}
}

func TestTagExclusionUsesDisplayTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{
		PageURL: "https://a.example.com",
		Comment: "heavily tagged",
		Tags:    []string{"alpha", "beta", "delta", "epsilon", "gamma"},
	})

	// "gamma" sorts past the display cap of 4, so it cannot exclude.
	res, err := f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TagsExc: []string{"gamma"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 1 {
		t.Fatalf("excluding a tag beyond the display cap dropped the annotation")
	}
	if got := res.Docs[0].Annotations[0].Tags; len(got) != 4 || got[3] == "gamma" {
		t.Errorf("display tags = %v, want first 4 sorted names", got)
	}

	// A displayed tag still excludes.
	res, err = f.engine.SearchAnnotations(ctx, domain.AnnotSearchParams{TagsExc: []string{"alpha"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Docs) != 0 || len(res.AnnotsByDay) != 0 {
		t.Errorf("displayed excluded tag left results: docs = %v", docURLs(res))
	}
}

func TestSearchPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{
		PageURL:   "https://a.example.com",
		PageTitle: "Kubernetes Operators Guide",
		Comment:   "note",
	})
	f.addAnnot(t, at.Add(time.Minute), annots.CreateRequest{
		PageURL:   "https://b.example.com",
		PageTitle: "Cooking at home",
		Comment:   "note",
	})

	docs, err := f.engine.SearchPages(ctx, domain.AnnotSearchParams{TermsInc: []string{"kubernetes"}})
	if err != nil {
		t.Fatalf("SearchPages: %v", err)
	}
	if len(docs) != 1 || docs[0].URL != "a.example.com" {
		t.Fatalf("term search returned %d docs, want only the matching title", len(docs))
	}

	// Page-tag filter.
	if err := f.tags.AddTag(ctx, "go", "https://a.example.com"); err != nil {
		t.Fatal(err)
	}
	docs, err = f.engine.SearchPages(ctx, domain.AnnotSearchParams{TagsInc: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].URL != "a.example.com" {
		t.Errorf("tag filter returned %d docs, want only the tagged page", len(docs))
	}

	// List-membership filter.
	listID, err := f.lists.CreateList(ctx, "Recipes")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.lists.InsertPageToList(ctx, listID, "https://b.example.com"); err != nil {
		t.Fatal(err)
	}
	docs, err = f.engine.SearchPages(ctx, domain.AnnotSearchParams{Lists: []int64{listID}})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].URL != "b.example.com" {
		t.Errorf("list filter returned %d docs, want only the member page", len(docs))
	}
}

func TestSearchPagesShortCircuitsOnZeroHits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "note"})

	noHits := func(ctx context.Context, params LegacyParams) (LegacyResult, error) {
		return LegacyResult{}, nil
	}
	engine := NewEngine(f.pages, NewLister(f.annots, f.tags), NewEnricher(f.annots, f.tags), noHits, logger.NewNop())

	f.resetFinds()
	docs, err := engine.SearchPages(ctx, domain.AnnotSearchParams{TermsInc: []string{"anything"}})
	if err != nil {
		t.Fatal(err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("docs = %v, want empty slice", docs)
	}
	if got := f.finds[pages.Collection]; got != 0 {
		t.Errorf("page lookups = %d, want none when ranking returns no hits", got)
	}
}

func TestSearchPagesLatestTimePassThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.addAnnot(t, at, annots.CreateRequest{PageURL: "https://a.example.com", Comment: "note"})

	ranked := func(ctx context.Context, params LegacyParams) (LegacyResult, error) {
		return LegacyResult{
			IDs:        [][]any{{"a.example.com", 1.0, int64(4242)}},
			TotalCount: 1,
		}, nil
	}
	engine := NewEngine(f.pages, NewLister(f.annots, f.tags), NewEnricher(f.annots, f.tags), ranked, logger.NewNop())

	docs, err := engine.SearchPages(ctx, domain.AnnotSearchParams{TermsInc: []string{"note"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	if docs[0].DisplayTime != 4242 {
		t.Errorf("DisplayTime = %d, want the provider's latest time passed through", docs[0].DisplayTime)
	}
}

func docURLs(res *domain.AnnotSearchResult) []string {
	urls := make([]string, len(res.Docs))
	for i, doc := range res.Docs {
		urls[i] = doc.URL
	}
	return urls
}
