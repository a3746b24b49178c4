package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/webstash/webstash/internal/domain"
)

// toggleScript atomically creates a document if its key is absent or deletes
// it if present, keeping the collection pk set in step. Returning 1 means
// the row now exists. Running it as one script closes the check-then-act
// race two concurrent togglers would otherwise hit.
var toggleScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('DEL', KEYS[1])
	redis.call('SREM', KEYS[2], ARGV[2])
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[2], ARGV[2])
return 1
`)

// Redis is a Backend storing each document as a JSON value under its own
// key, with a per-collection set of primary keys. Predicate evaluation
// happens application-side over the fetched set; collections here are small
// enough (single user's pages/annotations) that scans stay cheap.
type Redis struct {
	client *redis.Client

	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewRedis wraps an already-connected client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client:  client,
		schemas: make(map[string]Schema),
	}
}

func (r *Redis) Register(schema Schema) error {
	if len(schema.PK) == 0 {
		return fmt.Errorf("collection %q: schema has no primary key", schema.Name)
	}
	r.mu.Lock()
	r.schemas[schema.Name] = schema
	r.mu.Unlock()
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) schema(collection string) (Schema, error) {
	r.mu.RLock()
	schema, ok := r.schemas[collection]
	r.mu.RUnlock()
	if !ok {
		return Schema{}, fmt.Errorf("unknown collection %q", collection)
	}
	return schema, nil
}

func (r *Redis) Create(ctx context.Context, collection string, doc Object) error {
	schema, err := r.schema(collection)
	if err != nil {
		return err
	}

	pk := PKValue(schema, doc)
	for _, field := range schema.Unique {
		key := uniqueKey(collection, field, foldValue(doc[field]))
		set, err := r.client.SetNX(ctx, key, pk, 0).Result()
		if err != nil {
			return fmt.Errorf("reserve unique %s.%s: %w", collection, field, err)
		}
		if !set {
			owner, err := r.client.Get(ctx, key).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("check unique %s.%s: %w", collection, field, err)
			}
			if owner != pk {
				return &domain.ConflictError{Collection: collection, Field: field, Value: doc[field]}
			}
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", collection, err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, docKey(collection, pk), data, 0)
	pipe.SAdd(ctx, allKey(collection), pk)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save %s document: %w", collection, err)
	}
	return nil
}

func (r *Redis) FindOne(ctx context.Context, collection string, q Query) (Object, error) {
	q.Limit = 1
	docs, err := r.Find(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func (r *Redis) Find(ctx context.Context, collection string, q Query) ([]Object, error) {
	matches, _, err := r.scan(ctx, collection, q.Where)
	if err != nil {
		return nil, err
	}

	if q.Skip > 0 {
		if q.Skip >= len(matches) {
			return nil, nil
		}
		matches = matches[q.Skip:]
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (r *Redis) Update(ctx context.Context, collection string, q Query, set Object) (int, error) {
	schema, err := r.schema(collection)
	if err != nil {
		return 0, err
	}
	matches, pks, err := r.scan(ctx, collection, q.Where)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i, doc := range matches {
		for _, field := range schema.Unique {
			if _, changed := set[field]; changed {
				// Move the unique reservation to the new value. A lost
				// race here overwrites the reservation; creation is the
				// path with strict conflict semantics.
				old := uniqueKey(collection, field, foldValue(doc[field]))
				r.client.Del(ctx, old)
			}
		}
		for field, value := range set {
			doc[field] = value
		}
		if PKValue(schema, doc) != pks[i] {
			return updated, fmt.Errorf("collection %q: update would change primary key", collection)
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return updated, fmt.Errorf("marshal %s document: %w", collection, err)
		}
		pipe := r.client.Pipeline()
		pipe.Set(ctx, docKey(collection, pks[i]), data, 0)
		for _, field := range schema.Unique {
			if _, changed := set[field]; changed {
				pipe.Set(ctx, uniqueKey(collection, field, foldValue(doc[field])), pks[i], 0)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return updated, fmt.Errorf("update %s document: %w", collection, err)
		}
		updated++
	}
	return updated, nil
}

func (r *Redis) Delete(ctx context.Context, collection string, q Query) (int, error) {
	schema, err := r.schema(collection)
	if err != nil {
		return 0, err
	}
	matches, pks, err := r.scan(ctx, collection, q.Where)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	for i, doc := range matches {
		pipe.Del(ctx, docKey(collection, pks[i]))
		pipe.SRem(ctx, allKey(collection), pks[i])
		for _, field := range schema.Unique {
			pipe.Del(ctx, uniqueKey(collection, field, foldValue(doc[field])))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete %s documents: %w", collection, err)
	}
	return len(matches), nil
}

func (r *Redis) Toggle(ctx context.Context, collection string, doc Object) (bool, error) {
	schema, err := r.schema(collection)
	if err != nil {
		return false, err
	}

	pk := PKValue(schema, doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal %s document: %w", collection, err)
	}

	created, err := toggleScript.Run(ctx, r.client,
		[]string{docKey(collection, pk), allKey(collection)},
		data, pk,
	).Int()
	if err != nil {
		return false, fmt.Errorf("toggle %s presence: %w", collection, err)
	}
	return created == 1, nil
}

// scan fetches every document of a collection and filters application-side,
// returning matches alongside their pks in stable (sorted pk) order.
func (r *Redis) scan(ctx context.Context, collection string, preds []Predicate) ([]Object, []string, error) {
	if _, err := r.schema(collection); err != nil {
		return nil, nil, err
	}

	pks, err := r.client.SMembers(ctx, allKey(collection)).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("list %s keys: %w", collection, err)
	}
	if len(pks) == 0 {
		return nil, nil, nil
	}
	sort.Strings(pks)

	keys := make([]string, len(pks))
	for i, pk := range pks {
		keys[i] = docKey(collection, pk)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s documents: %w", collection, err)
	}

	var (
		matches  []Object
		matchPKs []string
	)
	for i, raw := range values {
		str, ok := raw.(string)
		if !ok {
			// Expired or concurrently deleted; the pk set catches up on
			// the next write.
			continue
		}
		var doc Object
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			return nil, nil, fmt.Errorf("unmarshal %s document: %w", collection, err)
		}
		if MatchesAll(doc, preds) {
			matches = append(matches, doc)
			matchPKs = append(matchPKs, pks[i])
		}
	}
	return matches, matchPKs, nil
}

// Compile-time interface check
var _ Backend = (*Redis)(nil)
