package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/webstash/webstash/internal/domain"
)

// Memory is an in-memory Backend guarded by a single RWMutex.
// It is the default backend when no Redis address is configured, and the
// one every store test runs on.
type Memory struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	// docs[collection][pk] -> document
	docs map[string]map[string]Object
	// unique[collection][field][folded value] -> pk
	unique map[string]map[string]map[string]string
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		schemas: make(map[string]Schema),
		docs:    make(map[string]map[string]Object),
		unique:  make(map[string]map[string]map[string]string),
	}
}

func (m *Memory) Register(schema Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(schema.PK) == 0 {
		return fmt.Errorf("collection %q: schema has no primary key", schema.Name)
	}
	m.schemas[schema.Name] = schema
	if _, ok := m.docs[schema.Name]; !ok {
		m.docs[schema.Name] = make(map[string]Object)
	}
	idx := make(map[string]map[string]string, len(schema.Unique))
	for _, field := range schema.Unique {
		idx[field] = make(map[string]string)
	}
	m.unique[schema.Name] = idx
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Create(_ context.Context, collection string, doc Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	schema, coll, err := m.coll(collection)
	if err != nil {
		return err
	}

	pk := PKValue(schema, doc)
	for field, idx := range m.unique[collection] {
		key := foldValue(doc[field])
		if owner, taken := idx[key]; taken && owner != pk {
			return &domain.ConflictError{Collection: collection, Field: field, Value: doc[field]}
		}
	}

	// Same-pk writes merge; membership inserts stay idempotent.
	if old, exists := coll[pk]; exists {
		m.dropUniqueEntries(collection, old)
	}
	stored := copyObject(doc)
	coll[pk] = stored
	m.addUniqueEntries(collection, pk, stored)
	return nil
}

func (m *Memory) FindOne(_ context.Context, collection string, q Query) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, err := m.match(collection, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (m *Memory) Find(_ context.Context, collection string, q Query) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.match(collection, q)
}

func (m *Memory) Update(_ context.Context, collection string, q Query, set Object) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	schema, coll, err := m.coll(collection)
	if err != nil {
		return 0, err
	}

	updated := 0
	for pk, doc := range coll {
		if !MatchesAll(doc, q.Where) {
			continue
		}

		merged := copyObject(doc)
		for field, value := range set {
			merged[field] = value
		}
		// A pk change on update is not supported; keys stay put.
		if PKValue(schema, merged) != pk {
			return updated, fmt.Errorf("collection %q: update would change primary key", collection)
		}
		for field, idx := range m.unique[collection] {
			if owner, taken := idx[foldValue(merged[field])]; taken && owner != pk {
				return updated, &domain.ConflictError{Collection: collection, Field: field, Value: merged[field]}
			}
		}

		m.dropUniqueEntries(collection, doc)
		coll[pk] = merged
		m.addUniqueEntries(collection, pk, merged)
		updated++
	}
	return updated, nil
}

func (m *Memory) Delete(_ context.Context, collection string, q Query) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, coll, err := m.coll(collection)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for pk, doc := range coll {
		if !MatchesAll(doc, q.Where) {
			continue
		}
		m.dropUniqueEntries(collection, doc)
		delete(coll, pk)
		deleted++
	}
	return deleted, nil
}

func (m *Memory) Toggle(_ context.Context, collection string, doc Object) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	schema, coll, err := m.coll(collection)
	if err != nil {
		return false, err
	}

	pk := PKValue(schema, doc)
	if old, exists := coll[pk]; exists {
		m.dropUniqueEntries(collection, old)
		delete(coll, pk)
		return false, nil
	}
	stored := copyObject(doc)
	coll[pk] = stored
	m.addUniqueEntries(collection, pk, stored)
	return true, nil
}

// match is called with at least a read lock held.
func (m *Memory) match(collection string, q Query) ([]Object, error) {
	_, coll, err := m.coll(collection)
	if err != nil {
		return nil, err
	}

	pks := make([]string, 0, len(coll))
	for pk, doc := range coll {
		if MatchesAll(doc, q.Where) {
			pks = append(pks, pk)
		}
	}
	sort.Strings(pks)

	if q.Skip > 0 {
		if q.Skip >= len(pks) {
			return nil, nil
		}
		pks = pks[q.Skip:]
	}
	if q.Limit > 0 && len(pks) > q.Limit {
		pks = pks[:q.Limit]
	}

	out := make([]Object, 0, len(pks))
	for _, pk := range pks {
		out = append(out, copyObject(coll[pk]))
	}
	return out, nil
}

func (m *Memory) coll(collection string) (Schema, map[string]Object, error) {
	schema, ok := m.schemas[collection]
	if !ok {
		return Schema{}, nil, fmt.Errorf("unknown collection %q", collection)
	}
	return schema, m.docs[collection], nil
}

func (m *Memory) addUniqueEntries(collection, pk string, doc Object) {
	for field, idx := range m.unique[collection] {
		if v, ok := doc[field]; ok {
			idx[foldValue(v)] = pk
		}
	}
}

func (m *Memory) dropUniqueEntries(collection string, doc Object) {
	for field, idx := range m.unique[collection] {
		if v, ok := doc[field]; ok {
			delete(idx, foldValue(v))
		}
	}
}

// foldValue folds case for unique comparison: list names are unique
// case-insensitively.
func foldValue(v any) string {
	return strings.ToLower(canon(v))
}

func copyObject(doc Object) Object {
	out := make(Object, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// Compile-time interface check
var _ Backend = (*Memory)(nil)
