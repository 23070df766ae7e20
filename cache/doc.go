// Package cache provides the in-memory response cache used in front of
// upstream API calls.
//
// MemoryCache is a TTL plus LRU store: entries expire after the policy TTL
// and the least-recently-used entry is evicted once MaxEntries is reached.
// RequestKey hashes an upstream request so that query parameter order never
// changes the key.
package cache
