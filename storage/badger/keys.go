package badger

import "strings"

// Key prefixes for different data types
const (
	cacheRecordPrefix = "embcache"
)

// makeCacheKey generates a key for a cache record by document ID.
// Format: prefix:docID
func makeCacheKey(docID string) []byte {
	return []byte(cacheRecordPrefix + ":" + docID)
}

// makeCachePrefix returns the prefix shared by all cache record keys.
func makeCachePrefix() []byte {
	return []byte(cacheRecordPrefix + ":")
}

// docIDFromCacheKey recovers the document ID from a cache record key.
func docIDFromCacheKey(key []byte) string {
	return strings.TrimPrefix(string(key), cacheRecordPrefix+":")
}
