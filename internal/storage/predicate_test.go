package storage

import "testing"

func TestPredicateMatches(t *testing.T) {
	doc := Object{
		"url":        "example.com/page",
		"name":       "Reading List",
		"listId":     int64(42),
		"lastEdited": float64(1700000000000),
		"isStub":     true,
	}

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{name: "eq string hit", pred: Eq("url", "example.com/page"), want: true},
		{name: "eq string miss", pred: Eq("url", "example.com/other"), want: false},
		{name: "eq bool", pred: Eq("isStub", true), want: true},
		{name: "eq int64 vs float64", pred: Eq("listId", float64(42)), want: true},
		{name: "eq fold hit", pred: EqFold("name", "reading list"), want: true},
		{name: "eq fold miss", pred: EqFold("name", "reading"), want: false},
		{name: "eq fold non-string", pred: EqFold("listId", "42"), want: false},
		{name: "in hit", pred: In("listId", []any{int64(1), int64(42)}), want: true},
		{name: "in miss", pred: In("listId", []any{int64(1), int64(2)}), want: false},
		{name: "in mixed numeric forms", pred: In("listId", []any{float64(42)}), want: true},
		{name: "not in hit", pred: NotIn("listId", []any{int64(1)}), want: true},
		{name: "not in miss", pred: NotIn("listId", []any{int64(42)}), want: false},
		{name: "not in empty set", pred: NotIn("listId", []any{}), want: true},
		{name: "gte equal", pred: Gte("lastEdited", int64(1700000000000)), want: true},
		{name: "gte below", pred: Gte("lastEdited", int64(1700000000001)), want: false},
		{name: "lte above", pred: Lte("lastEdited", int64(1700000000001)), want: true},
		{name: "lte below", pred: Lte("lastEdited", int64(1699999999999)), want: false},
		{name: "missing field eq", pred: Eq("nope", "x"), want: false},
		{name: "missing field not-in matches", pred: NotIn("nope", []any{"x"}), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred.Matches(doc); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesAll(t *testing.T) {
	doc := Object{"a": int64(1), "b": "x"}

	if !MatchesAll(doc, []Predicate{Eq("a", int64(1)), Eq("b", "x")}) {
		t.Error("conjunction of matching predicates should match")
	}
	if MatchesAll(doc, []Predicate{Eq("a", int64(1)), Eq("b", "y")}) {
		t.Error("one failing predicate should fail the conjunction")
	}
	if !MatchesAll(doc, nil) {
		t.Error("empty predicate list matches everything")
	}
}

func TestPKValue(t *testing.T) {
	schema := Schema{Name: "entries", PK: []string{"listId", "pageUrl"}}

	tests := []struct {
		name string
		doc  Object
		want string
	}{
		{
			name: "int64 composite",
			doc:  Object{"listId": int64(42), "pageUrl": "example.com"},
			want: "42|example.com",
		},
		{
			name: "float64 renders without exponent",
			doc:  Object{"listId": float64(1532000000000), "pageUrl": "example.com"},
			want: "1532000000000|example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PKValue(schema, tt.doc); got != tt.want {
				t.Errorf("PKValue = %q, want %q", got, tt.want)
			}
		})
	}
}
