package rogue

import (
	"time"

	"github.com/patchbrain/rogue/adapters"
	"github.com/patchbrain/rogue/codec"
	"github.com/patchbrain/rogue/hash"
)

const (
	defaultBucketCount = 16384
	defaultLogBytes    = 10 * 1024 * 1024
)

// CompactionConfig controls the auto-compaction trigger evaluated on
// mutating operations.
type CompactionConfig struct {
	AutoCompact bool
	Threshold   float64 // dead / (live+dead) above this fires compaction, dead = tombstones + overwritten records
	MinSize     int     // live+dead must reach this before the ratio is even checked
}

// DefaultCompactionConfig matches spec.md §4.4's defaults.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{AutoCompact: true, Threshold: 0.3, MinSize: 1000}
}

// PersistenceKind selects which concrete adapters.PersistenceAdapter New
// wires up when no explicit adapter is supplied via WithPersistenceAdapter.
type PersistenceKind int

const (
	PersistenceNone PersistenceKind = iota
	PersistenceFile
	PersistenceEmbeddedKV
	PersistenceMemory
)

type config[K comparable, V any] struct {
	bucketCount  int
	logBytes     int64
	pageSize     int64
	keyCodec     codec.Codec[K]
	valCodec     codec.Codec[V]
	hasher       hash.Hasher[K]
	ttl          time.Duration
	compaction   CompactionConfig
	cacheSize    int
	sink         adapters.EventSink[K, V]
	persistence  adapters.PersistenceAdapter
	persistKind  PersistenceKind
	persistPath  string
	persistKey   string
	saveInterval time.Duration
	syncLoad     bool
}

func defaultConfig[K comparable, V any]() *config[K, V] {
	return &config[K, V]{
		bucketCount: defaultBucketCount,
		logBytes:    defaultLogBytes,
		keyCodec:    codec.Default[K](),
		valCodec:    codec.Default[V](),
		hasher:      hash.Default[K](),
		compaction:  DefaultCompactionConfig(),
		sink:        adapters.NopSink[K, V](),
		persistKey:  "default",
	}
}

// Option configures an Engine[K, V] at construction time. All options are
// optional; see spec.md §6 for the full table.
type Option[K comparable, V any] func(*config[K, V])

// WithBucketCount sets the initial bucket count, rounded up to the next
// power of two.
func WithBucketCount[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) { c.bucketCount = n }
}

// WithLogBytes sets the initial paged-storage size in bytes.
func WithLogBytes[K comparable, V any](n int64) Option[K, V] {
	return func(c *config[K, V]) { c.logBytes = n }
}

// WithPageSize overrides the storage page size (default 2^30); mainly
// useful in tests that want to force cross-page addressing.
func WithPageSize[K comparable, V any](n int64) Option[K, V] {
	return func(c *config[K, V]) { c.pageSize = n }
}

// WithKeyCodec overrides the key codec (default: codec.Default[K]()).
func WithKeyCodec[K comparable, V any](c codec.Codec[K]) Option[K, V] {
	return func(cfg *config[K, V]) { cfg.keyCodec = c }
}

// WithValueCodec overrides the value codec (default: codec.Default[V]()).
func WithValueCodec[K comparable, V any](c codec.Codec[V]) Option[K, V] {
	return func(cfg *config[K, V]) { cfg.valCodec = c }
}

// WithHasher overrides the key hasher (default: hash.Default[K]()).
func WithHasher[K comparable, V any](h hash.Hasher[K]) Option[K, V] {
	return func(c *config[K, V]) { c.hasher = h }
}

// WithTTL sets the default TTL applied to Set calls that don't pass their
// own WithEntryTTL. 0 disables expiry by default.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *config[K, V]) { c.ttl = ttl }
}

// WithCompaction overrides the auto-compaction policy.
func WithCompaction[K comparable, V any](cfg CompactionConfig) Option[K, V] {
	return func(c *config[K, V]) { c.compaction = cfg }
}

// WithCacheSize enables the optional hot-item cache with the given
// capacity. 0 (the default) disables it.
func WithCacheSize[K comparable, V any](size int) Option[K, V] {
	return func(c *config[K, V]) { c.cacheSize = size }
}

// WithEventSink registers a subscriber for set/delete/expire/evict/clear
// notifications.
func WithEventSink[K comparable, V any](sink adapters.EventSink[K, V]) Option[K, V] {
	return func(c *config[K, V]) { c.sink = sink }
}

// WithPersistenceAdapter wires an explicit adapters.PersistenceAdapter,
// taking precedence over WithPersistenceKind.
func WithPersistenceAdapter[K comparable, V any](a adapters.PersistenceAdapter) Option[K, V] {
	return func(c *config[K, V]) { c.persistence = a }
}

// WithPersistenceKind selects a concrete built-in adapter: file,
// embedded-kv (bbolt), or memory. path is the adapter's root
// directory/file, depending on kind.
func WithPersistenceKind[K comparable, V any](kind PersistenceKind, path string) Option[K, V] {
	return func(c *config[K, V]) {
		c.persistKind = kind
		c.persistPath = path
	}
}

// WithPersistenceKey sets the snapshot key/filename used by Save/Load and
// the periodic save ticker (default "default").
func WithPersistenceKey[K comparable, V any](key string) Option[K, V] {
	return func(c *config[K, V]) { c.persistKey = key }
}

// WithSaveInterval starts a periodic save ticker once a persistence
// adapter is configured. 0 (the default) disables the ticker.
func WithSaveInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *config[K, V]) { c.saveInterval = interval }
}

// WithSyncLoad makes New attempt a synchronous Load from the configured
// persistence adapter before returning, instead of starting empty.
func WithSyncLoad[K comparable, V any]() Option[K, V] {
	return func(c *config[K, V]) { c.syncLoad = true }
}

// setConfig holds the per-call options accepted by Engine.Set.
type setConfig struct {
	ttl      time.Duration
	ttlIsSet bool
}

// SetOption configures a single Set call.
type SetOption func(*setConfig)

// WithEntryTTL overrides the engine's default TTL for this entry only. 0
// means "never expire", matching spec.md §4.3.
func WithEntryTTL(ttl time.Duration) SetOption {
	return func(c *setConfig) {
		c.ttl = ttl
		c.ttlIsSet = true
	}
}
