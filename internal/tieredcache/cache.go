package tieredcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"shelfscan/internal/logging"
	"shelfscan/internal/services"
)

const (
	defaultMaxBytes = 5 * 1024 * 1024
	defaultTTL      = 24 * time.Hour
	defaultPrefix   = "shelfscan_"
)

// Stats summarizes cache activity since the cache was created.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Sets       int64 `json:"sets"`
	Evictions  int64 `json:"evictions"`
	TotalBytes int64 `json:"totalBytes"`
	Entries    int   `json:"entries"`
}

// NamespaceUsage reports the indexed footprint of one namespace.
type NamespaceUsage struct {
	Namespace string `json:"namespace"`
	Entries   int    `json:"entries"`
	Bytes     int64  `json:"bytes"`
}

type entryRecord struct {
	Payload   json.RawMessage `json:"payload"`
	ExpiresAt int64           `json:"expiresAt"`
}

type indexEntry struct {
	SizeBytes  int64 `json:"sizeBytes"`
	LastUsedAt int64 `json:"lastUsedAt"`
}

type namespaceIndex map[string]indexEntry

type evictionCandidate struct {
	namespace  string
	key        string
	sizeBytes  int64
	lastUsedAt int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxBytes sets the global byte ceiling across all namespaces.
func WithMaxBytes(maxBytes int64) Option {
	return func(c *Cache) {
		if maxBytes > 0 {
			c.maxBytes = maxBytes
		}
	}
}

// WithKeyPrefix sets the prefix applied to every persisted key.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		if strings.TrimSpace(prefix) != "" {
			c.prefix = prefix
		}
	}
}

// WithDefaultTTL sets the expiry used when Set receives a non-positive ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is the two-tier lookup cache. It is safe for concurrent use.
type Cache struct {
	store      Store
	prefix     string
	maxBytes   int64
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	loaded  bool
	memory  map[string]entryRecord
	indexes map[string]namespaceIndex
	stats   Stats
	closeFn func() error
}

// New wraps store with an in-memory tier.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		prefix:     defaultPrefix,
		maxBytes:   defaultMaxBytes,
		defaultTTL: defaultTTL,
		logger:     logging.NewNop(),
		now:        time.Now,
		memory:     make(map[string]entryRecord),
		indexes:    make(map[string]namespaceIndex),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "tieredcache")
	return c
}

// Close releases the persistent store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.store.Close()
	if c.closeFn != nil {
		err = errors.Join(err, c.closeFn())
		c.closeFn = nil
	}
	return err
}

// Get decodes the cached value for namespace/key into dest and reports
// whether it was a hit. Expired and corrupt entries are removed and count as
// misses. dest may be nil to test presence.
func (c *Cache) Get(ctx context.Context, namespace, key string, dest any) bool {
	return c.lookup(ctx, namespace, key, dest, true)
}

// Peek behaves like Get but leaves the hit and miss counters alone. It is
// used for re-checks that belong to a lookup already counted by Get.
func (c *Cache) Peek(ctx context.Context, namespace, key string, dest any) bool {
	return c.lookup(ctx, namespace, key, dest, false)
}

func (c *Cache) lookup(ctx context.Context, namespace, key string, dest any, count bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexes(ctx)

	full := c.entryKey(namespace, key)
	record, found, err := c.readEntry(ctx, full)
	if err != nil {
		c.dropCorrupt(ctx, namespace, key, err)
		c.countMiss(count)
		return false
	}
	if !found {
		c.countMiss(count)
		return false
	}

	now := c.now()
	if now.UnixMilli() > record.ExpiresAt {
		c.removeLocked(ctx, namespace, key)
		c.persistIndex(ctx, namespace)
		c.countMiss(count)
		c.logger.Debug("cache entry expired",
			logging.String(logging.FieldEventType, "cache_expired"),
			logging.String(logging.FieldNamespace, namespace),
			logging.String("key", key))
		return false
	}

	if dest != nil {
		if err := json.Unmarshal(record.Payload, dest); err != nil {
			c.dropCorrupt(ctx, namespace, key, services.Wrap(services.ErrCacheCorruption, "tieredcache", "decode payload", key, err))
			c.countMiss(count)
			return false
		}
	}

	c.touch(namespace, key, int64(len(record.Payload)), now)
	c.persistIndex(ctx, namespace)
	if count {
		c.stats.Hits++
	}
	return true
}

func (c *Cache) countMiss(count bool) {
	if count {
		c.stats.Misses++
	}
}

// Set stores value under namespace/key for ttl (the default TTL when ttl is
// not positive). Only a value that cannot be serialized returns an error;
// persistence failures are logged and the write is dropped.
func (c *Cache) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexes(ctx)

	now := c.now()
	record := entryRecord{Payload: payload, ExpiresAt: now.Add(ttl).UnixMilli()}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	size := int64(len(payload))
	full := c.entryKey(namespace, key)

	if err := c.writeEntry(ctx, namespace, key, full, data, size); err != nil {
		c.logger.Warn("cache write dropped",
			logging.String(logging.FieldEventType, "cache_write_dropped"),
			logging.String(logging.FieldNamespace, namespace),
			logging.String("key", key),
			logging.Int64("size_bytes", size),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise cache.store_quota_bytes or lower cache.max_bytes"),
			logging.String(logging.FieldImpact, "value will be fetched again on next lookup"))
		return nil
	}

	c.memory[full] = record
	c.touch(namespace, key, size, now)
	c.persistIndex(ctx, namespace)
	c.stats.Sets++
	c.enforceCeiling(ctx)
	return nil
}

// Remove deletes namespace/key from both tiers.
func (c *Cache) Remove(ctx context.Context, namespace, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexes(ctx)
	c.removeLocked(ctx, namespace, key)
	c.persistIndex(ctx, namespace)
}

// Clear removes every entry in namespace, or in all namespaces when
// namespace is empty.
func (c *Cache) Clear(ctx context.Context, namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexes(ctx)

	entryPrefix := c.prefix + namespace
	if namespace != "" {
		entryPrefix += "_"
	}
	keys, err := c.store.Keys(ctx, entryPrefix)
	if err != nil {
		c.logger.Warn("cache clear could not list keys",
			logging.String(logging.FieldEventType, "cache_clear_list_failed"),
			logging.String(logging.FieldNamespace, namespace),
			logging.Error(err))
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("cache clear delete failed", logging.String("key", key), logging.Error(err))
		}
	}
	for full := range c.memory {
		if strings.HasPrefix(full, entryPrefix) {
			delete(c.memory, full)
		}
	}
	if namespace == "" {
		c.indexes = make(map[string]namespaceIndex)
		return
	}
	delete(c.indexes, namespace)
	if err := c.store.Delete(ctx, c.indexKey(namespace)); err != nil {
		c.logger.Warn("cache clear index delete failed", logging.String(logging.FieldNamespace, namespace), logging.Error(err))
	}
}

// Stats returns counters and the indexed byte total. It does not change LRU
// order.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexes(ctx)
	stats := c.stats
	for _, idx := range c.indexes {
		stats.Entries += len(idx)
		for _, entry := range idx {
			stats.TotalBytes += entry.SizeBytes
		}
	}
	return stats
}

// Usage reports per-namespace entry counts and bytes, sorted by namespace.
func (c *Cache) Usage(ctx context.Context) []NamespaceUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexes(ctx)
	usage := make([]NamespaceUsage, 0, len(c.indexes))
	for namespace, idx := range c.indexes {
		u := NamespaceUsage{Namespace: namespace, Entries: len(idx)}
		for _, entry := range idx {
			u.Bytes += entry.SizeBytes
		}
		usage = append(usage, u)
	}
	sort.Slice(usage, func(i, j int) bool { return usage[i].Namespace < usage[j].Namespace })
	return usage
}

func (c *Cache) entryKey(namespace, key string) string {
	return c.prefix + namespace + "_" + key
}

func (c *Cache) indexKey(namespace string) string {
	return c.prefix + "_index_" + namespace
}

func (c *Cache) readEntry(ctx context.Context, full string) (entryRecord, bool, error) {
	if record, ok := c.memory[full]; ok {
		return record, true, nil
	}
	data, found, err := c.store.Get(ctx, full)
	if err != nil {
		c.logger.Warn("cache store read failed",
			logging.String(logging.FieldEventType, "cache_read_failed"),
			logging.String("key", full),
			logging.Error(err))
		return entryRecord{}, false, nil
	}
	if !found {
		return entryRecord{}, false, nil
	}
	var record entryRecord
	if err := json.Unmarshal(data, &record); err != nil || record.Payload == nil {
		if err == nil {
			err = errors.New("missing payload")
		}
		return entryRecord{}, false, services.Wrap(services.ErrCacheCorruption, "tieredcache", "decode entry", full, err)
	}
	c.memory[full] = record
	return record, true, nil
}

func (c *Cache) dropCorrupt(ctx context.Context, namespace, key string, err error) {
	c.logger.Warn("corrupt cache entry removed",
		logging.String(logging.FieldEventType, "cache_corrupt"),
		logging.String(logging.FieldNamespace, namespace),
		logging.String("key", key),
		logging.Error(err),
		logging.String(logging.FieldImpact, "treated as a cache miss"))
	c.removeLocked(ctx, namespace, key)
	c.persistIndex(ctx, namespace)
}

// writeEntry persists data, running a forced eviction and one retry when the
// store reports it is full.
func (c *Cache) writeEntry(ctx context.Context, namespace, key, full string, data []byte, size int64) error {
	err := c.store.Set(ctx, full, data)
	if err == nil || !errors.Is(err, services.ErrCapacityExceeded) {
		return err
	}
	c.logger.Info("cache store full, forcing eviction",
		logging.String(logging.FieldEventType, "cache_forced_eviction"),
		logging.String(logging.FieldNamespace, namespace),
		logging.Int64("incoming_bytes", size))
	c.forceEvict(ctx, namespace, key, size)
	return c.store.Set(ctx, full, data)
}

func (c *Cache) touch(namespace, key string, size int64, now time.Time) {
	idx, ok := c.indexes[namespace]
	if !ok {
		idx = make(namespaceIndex)
		c.indexes[namespace] = idx
	}
	idx[key] = indexEntry{SizeBytes: size, LastUsedAt: now.UnixMilli()}
}

func (c *Cache) removeLocked(ctx context.Context, namespace, key string) {
	full := c.entryKey(namespace, key)
	if err := c.store.Delete(ctx, full); err != nil {
		c.logger.Warn("cache store delete failed", logging.String("key", full), logging.Error(err))
	}
	delete(c.memory, full)
	if idx, ok := c.indexes[namespace]; ok {
		delete(idx, key)
	}
}

func (c *Cache) totalBytes() int64 {
	var total int64
	for _, idx := range c.indexes {
		for _, entry := range idx {
			total += entry.SizeBytes
		}
	}
	return total
}

// candidates lists every indexed entry oldest first.
func (c *Cache) candidates() []evictionCandidate {
	var out []evictionCandidate
	for namespace, idx := range c.indexes {
		for key, entry := range idx {
			out = append(out, evictionCandidate{namespace: namespace, key: key, sizeBytes: entry.SizeBytes, lastUsedAt: entry.LastUsedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].lastUsedAt != out[j].lastUsedAt {
			return out[i].lastUsedAt < out[j].lastUsedAt
		}
		if out[i].namespace != out[j].namespace {
			return out[i].namespace < out[j].namespace
		}
		return out[i].key < out[j].key
	})
	return out
}

func (c *Cache) enforceCeiling(ctx context.Context) {
	total := c.totalBytes()
	if total <= c.maxBytes {
		return
	}
	touched := make(map[string]struct{})
	for _, candidate := range c.candidates() {
		if total <= c.maxBytes {
			break
		}
		c.evict(ctx, candidate)
		total -= candidate.sizeBytes
		touched[candidate.namespace] = struct{}{}
	}
	for namespace := range touched {
		c.persistIndex(ctx, namespace)
	}
}

// forceEvict removes the oldest entries other than the one being written
// until the incoming value fits under the ceiling, always removing at least one.
func (c *Cache) forceEvict(ctx context.Context, namespace, key string, incoming int64) {
	total := c.totalBytes()
	touched := make(map[string]struct{})
	removed := 0
	for _, candidate := range c.candidates() {
		if candidate.namespace == namespace && candidate.key == key {
			continue
		}
		if removed > 0 && total+incoming <= c.maxBytes {
			break
		}
		c.evict(ctx, candidate)
		total -= candidate.sizeBytes
		touched[candidate.namespace] = struct{}{}
		removed++
	}
	for ns := range touched {
		c.persistIndex(ctx, ns)
	}
}

func (c *Cache) evict(ctx context.Context, candidate evictionCandidate) {
	c.removeLocked(ctx, candidate.namespace, candidate.key)
	c.stats.Evictions++
	c.logger.Debug("cache entry evicted",
		logging.String(logging.FieldEventType, "cache_evicted"),
		logging.String(logging.FieldNamespace, candidate.namespace),
		logging.String("key", candidate.key),
		logging.Int64("size_bytes", candidate.sizeBytes))
}

func (c *Cache) persistIndex(ctx context.Context, namespace string) {
	idx := c.indexes[namespace]
	if len(idx) == 0 {
		if err := c.store.Delete(ctx, c.indexKey(namespace)); err != nil {
			c.logger.Warn("cache index delete failed", logging.String(logging.FieldNamespace, namespace), logging.Error(err))
		}
		return
	}
	data, err := json.Marshal(idx)
	if err != nil {
		c.logger.Warn("cache index marshal failed", logging.String(logging.FieldNamespace, namespace), logging.Error(err))
		return
	}
	if err := c.store.Set(ctx, c.indexKey(namespace), data); err != nil {
		c.logger.Warn("cache index write failed",
			logging.String(logging.FieldEventType, "cache_index_write_failed"),
			logging.String(logging.FieldNamespace, namespace),
			logging.Error(err),
			logging.String(logging.FieldImpact, "index will be rebuilt from reads"))
	}
}

// loadIndexes reads every persisted namespace index once. An index that does
// not parse is replaced with an empty one and rebuilt as entries are read.
func (c *Cache) loadIndexes(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true
	indexPrefix := c.prefix + "_index_"
	keys, err := c.store.Keys(ctx, indexPrefix)
	if err != nil {
		c.logger.Warn("cache index listing failed", logging.Error(err))
		return
	}
	for _, key := range keys {
		namespace := strings.TrimPrefix(key, indexPrefix)
		idx := make(namespaceIndex)
		data, found, err := c.store.Get(ctx, key)
		if err == nil && found {
			if err := json.Unmarshal(data, &idx); err != nil {
				c.logger.Warn("cache index corrupt, starting empty",
					logging.String(logging.FieldEventType, "cache_index_corrupt"),
					logging.String(logging.FieldNamespace, namespace),
					logging.Error(err))
				idx = make(namespaceIndex)
			}
		}
		c.indexes[namespace] = idx
	}
}
