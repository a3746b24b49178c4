// Package storage provides the collection backend the stores run on:
// named collections of JSON-like documents with declared keys, predicate
// based find/delete, and an atomic presence toggle. Two implementations
// exist: an in-memory backend (tests, standalone mode) and a Redis backend.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Object is a stored document. Values are JSON-compatible: strings, bools,
// numbers (any Go numeric kind), nested maps and slices.
type Object = map[string]any

// Schema describes a collection: its primary key (one field, or a composite),
// unique secondary indices, and a version timestamp understood by the backend.
type Schema struct {
	Name    string
	Version time.Time
	PK      []string
	Unique  []string
}

// Query is a conjunction of predicates plus result modifiers.
type Query struct {
	Where []Predicate
	Limit int
	Skip  int
}

// Backend is the storage contract shared by every store. All components
// share one Backend handle; none opens independent connections.
//
// Create semantics: writing a document whose primary key already exists is a
// merge (idempotent composite-key membership), but violating a unique
// secondary index returns a domain.ConflictError.
//
// FindOne returns (nil, nil) when no document matches.
//
// Toggle atomically creates doc if its primary key is absent (returns true)
// or deletes the existing row (returns false). It exists so bookmark-style
// presence flips are a single storage call, not a check followed by an act.
type Backend interface {
	Register(schema Schema) error
	Create(ctx context.Context, collection string, doc Object) error
	FindOne(ctx context.Context, collection string, q Query) (Object, error)
	Find(ctx context.Context, collection string, q Query) ([]Object, error)
	Update(ctx context.Context, collection string, q Query, set Object) (int, error)
	Delete(ctx context.Context, collection string, q Query) (int, error)
	Toggle(ctx context.Context, collection string, doc Object) (bool, error)
	Close() error
}

// Encode converts a domain struct into a stored Object via JSON round-trip.
func Encode(v any) (Object, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return obj, nil
}

// Decode fills a domain struct from a stored Object.
func Decode(obj Object, out any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode object: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	return nil
}

// DecodeAll decodes a result set into a slice of domain structs.
func DecodeAll[T any](objs []Object) ([]T, error) {
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		var v T
		if err := Decode(obj, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// PKValue builds the canonical key string for a document under a schema.
// Composite keys join their parts with '|'.
func PKValue(schema Schema, doc Object) string {
	parts := make([]string, 0, len(schema.PK))
	for _, field := range schema.PK {
		parts = append(parts, canon(doc[field]))
	}
	return strings.Join(parts, "|")
}

// canon renders a field value as a stable string. Numeric values render
// without an exponent so int64 IDs survive the JSON float round-trip.
func canon(v any) string {
	if f, ok := asNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
