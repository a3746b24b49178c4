package tags

import (
	"context"
	"testing"

	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *pages.Store) {
	t.Helper()
	log := logger.NewNop()
	reg := registry.New(storage.NewMemory(), log)
	pageStore, err := pages.NewStore(reg, log)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(reg, pageStore, log)
	if err != nil {
		t.Fatal(err)
	}
	return s, pageStore
}

func TestAddTagCreatesStubPage(t *testing.T) {
	s, pageStore := newTestStore(t)
	ctx := context.Background()

	if err := s.AddTag(ctx, "go", "https://example.com/article"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}

	page, err := pageStore.Get(ctx, "example.com/article")
	if err != nil {
		t.Fatal(err)
	}
	if page == nil {
		t.Fatal("tagging an unknown URL should create a stub page")
	}
	if !page.IsStub {
		t.Error("auto-created page should be a stub")
	}

	names, err := s.FetchPageTags(ctx, "https://example.com/article")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "go" {
		t.Errorf("tags = %v, want [go]", names)
	}
}

func TestAddTagIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.AddTag(ctx, "go", "https://example.com"); err != nil {
			t.Fatalf("AddTag #%d: %v", i, err)
		}
	}
	names, err := s.FetchPageTags(ctx, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("got %d tags after double add, want 1", len(names))
	}
}

func TestDelTag(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddTag(ctx, "go", "https://example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.DelTag(ctx, "go", "https://example.com"); err != nil {
		t.Fatalf("DelTag: %v", err)
	}
	// Removing an absent tag stays silent.
	if err := s.DelTag(ctx, "go", "https://example.com"); err != nil {
		t.Fatalf("DelTag of absent tag: %v", err)
	}

	names, err := s.FetchPageTags(ctx, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("tags = %v, want none", names)
	}
}

func TestTagBatchOverTabs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	urls := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	if err := s.AddTagsToOpenTabs(ctx, "session", urls); err != nil {
		t.Fatalf("AddTagsToOpenTabs: %v", err)
	}
	for _, url := range urls {
		names, err := s.FetchPageTags(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 1 {
			t.Errorf("%s: got %d tags, want 1", url, len(names))
		}
	}

	if err := s.DelTagsFromOpenTabs(ctx, "session", urls[:2]); err != nil {
		t.Fatalf("DelTagsFromOpenTabs: %v", err)
	}
	names, err := s.FetchPageTags(ctx, urls[2])
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("untouched tab lost its tag")
	}
	names, err = s.FetchPageTags(ctx, urls[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("removed tab still tagged: %v", names)
	}
}

func TestFetchTagsByURLs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddTag(ctx, "go", "https://a.example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTag(ctx, "rust", "https://a.example.com"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTag(ctx, "go", "https://b.example.com"); err != nil {
		t.Fatal(err)
	}

	byURL, err := s.FetchTagsByURLs(ctx, []string{"a.example.com", "b.example.com", "missing.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byURL["a.example.com"]) != 2 {
		t.Errorf("a: %v, want 2 tags", byURL["a.example.com"])
	}
	if len(byURL["b.example.com"]) != 1 {
		t.Errorf("b: %v, want 1 tag", byURL["b.example.com"])
	}
	if len(byURL["missing.example.com"]) != 0 {
		t.Errorf("missing URL has tags: %v", byURL["missing.example.com"])
	}

	empty, err := s.FetchTagsByURLs(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("nil input: %v, want empty map", empty)
	}
}
