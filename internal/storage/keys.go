package storage

const (
	// keyPrefix namespaces every key the Redis backend writes.
	keyPrefix = "webstash:"
)

// docKey returns the Redis key holding one document.
func docKey(collection, pk string) string {
	return keyPrefix + collection + ":" + pk
}

// allKey returns the key of the set holding every pk in a collection.
func allKey(collection string) string {
	return keyPrefix + collection + ":all"
}

// uniqueKey returns the key guarding a unique index entry.
func uniqueKey(collection, field, folded string) string {
	return keyPrefix + collection + ":uniq:" + field + ":" + folded
}
