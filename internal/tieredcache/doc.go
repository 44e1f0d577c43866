// Package tieredcache implements the lookup cache shared by every network
// backed lookup: an in-memory tier in front of a size-bounded persistent Store.
//
// Entries are grouped into namespaces (upc, search, details). Each namespace
// keeps an index of key to {sizeBytes, lastUsedAt} persisted next to the
// entries, keyed <prefix>_index_<namespace>; entries live under
// <prefix><namespace>_<key>. Expiry is checked lazily on Get. After every Set
// the least recently used entries across all namespaces are evicted until the
// total size fits under the configured ceiling. When the Store rejects a write
// for capacity, the cache evicts, retries once and otherwise drops the write
// with a warning.
//
// Two Store implementations are provided: SQLiteStore (modernc.org/sqlite) and
// FileStore (go-billy). Open builds the configured one and holds a flock on the
// cache directory for the lifetime of the cache.
package tieredcache
