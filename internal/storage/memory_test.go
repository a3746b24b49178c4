package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/webstash/webstash/internal/domain"
)

func newTestBackend(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	schemas := []Schema{
		{Name: "lists", PK: []string{"id"}, Unique: []string{"name"}},
		{Name: "entries", PK: []string{"listId", "pageUrl"}},
		{Name: "marks", PK: []string{"url"}},
	}
	for _, s := range schemas {
		if err := m.Register(s); err != nil {
			t.Fatalf("Register(%s): %v", s.Name, err)
		}
	}
	return m
}

func TestCreateUniqueConflict(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	if err := m.Create(ctx, "lists", Object{"id": int64(1), "name": "Research"}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := m.Create(ctx, "lists", Object{"id": int64(2), "name": "research"})
	if err == nil {
		t.Fatal("expected conflict on case-folded duplicate name")
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error %v is not a ConflictError", err)
	}
	if conflict.Field != "name" {
		t.Errorf("conflict field = %q, want name", conflict.Field)
	}
}

func TestCreateSamePKMerges(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	doc := Object{"listId": int64(5), "pageUrl": "example.com/a", "createdAt": int64(100)}
	if err := m.Create(ctx, "entries", doc); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Same composite key again must not error or duplicate.
	if err := m.Create(ctx, "entries", Object{"listId": int64(5), "pageUrl": "example.com/a", "createdAt": int64(200)}); err != nil {
		t.Fatalf("idempotent create: %v", err)
	}

	got, err := m.Find(ctx, "entries", Query{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0]["createdAt"] != int64(200) {
		t.Errorf("createdAt = %v, want 200", got[0]["createdAt"])
	}
}

func TestFindOneMissingReturnsNil(t *testing.T) {
	m := newTestBackend(t)

	obj, err := m.FindOne(context.Background(), "lists", Query{
		Where: []Predicate{Eq("id", int64(99))},
	})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if obj != nil {
		t.Errorf("FindOne = %v, want nil", obj)
	}
}

func TestNumericPKSurvivesFloatRoundTrip(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	// JSON decoding turns int64 IDs into float64; both forms must address
	// the same document.
	if err := m.Create(ctx, "lists", Object{"id": int64(1532000000000), "name": "a"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	obj, err := m.FindOne(ctx, "lists", Query{
		Where: []Predicate{Eq("id", float64(1532000000000))},
	})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if obj == nil {
		t.Fatal("float-typed id did not match int64-stored document")
	}
}

func TestUpdate(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	if err := m.Create(ctx, "lists", Object{"id": int64(1), "name": "old"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := m.Update(ctx, "lists", Query{Where: []Predicate{Eq("id", int64(1))}}, Object{"name": "new"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Errorf("updated %d, want 1", n)
	}

	obj, err := m.FindOne(ctx, "lists", Query{Where: []Predicate{EqFold("name", "NEW")}})
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if obj == nil {
		t.Fatal("renamed document not found by new name")
	}

	// Old name must be free for reuse after rename.
	if err := m.Create(ctx, "lists", Object{"id": int64(2), "name": "old"}); err != nil {
		t.Errorf("create with freed name: %v", err)
	}
}

func TestUpdateUniqueConflict(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(m.Create(ctx, "lists", Object{"id": int64(1), "name": "a"}))
	must(m.Create(ctx, "lists", Object{"id": int64(2), "name": "b"}))

	_, err := m.Update(ctx, "lists", Query{Where: []Predicate{Eq("id", int64(2))}}, Object{"name": "A"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("update onto taken name: error = %v, want ErrConflict", err)
	}
}

func TestDelete(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := m.Create(ctx, "entries", Object{"listId": i, "pageUrl": "example.com"}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	n, err := m.Delete(ctx, "entries", Query{
		Where: []Predicate{In("listId", []any{int64(1), int64(3)})},
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}

	remaining, err := m.Find(ctx, "entries", Query{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("got %d remaining, want 1", len(remaining))
	}
}

func TestToggleAlternates(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	doc := Object{"url": "example.com/#123", "createdAt": int64(100)}

	created, err := m.Toggle(ctx, "marks", doc)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !created {
		t.Error("first toggle should create")
	}

	created, err = m.Toggle(ctx, "marks", doc)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if created {
		t.Error("second toggle should delete")
	}

	got, err := m.Find(ctx, "marks", Query{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d marks after double toggle, want 0", len(got))
	}
}

func TestFindSkipLimit(t *testing.T) {
	m := newTestBackend(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if err := m.Create(ctx, "entries", Object{"listId": i, "pageUrl": "p"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := m.Find(ctx, "entries", Query{Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d, want 2", len(got))
	}

	got, err = m.Find(ctx, "entries", Query{Skip: 10})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("skip past end: got %d, want 0", len(got))
	}
}

func TestUnknownCollection(t *testing.T) {
	m := newTestBackend(t)
	if err := m.Create(context.Background(), "nope", Object{"id": int64(1)}); err == nil {
		t.Error("expected error for unknown collection")
	}
}
