package rogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patchbrain/rogue/adapters"
	"github.com/patchbrain/rogue/codec"
	"github.com/patchbrain/rogue/hash"
	"github.com/patchbrain/rogue/index"
	"github.com/patchbrain/rogue/storage"
	"github.com/patchbrain/rogue/util/log"
)

const maxLogResizeRetries = 3
const maxBucketResizeRetries = 32

// Engine is an open-addressed, paged-log key-value store keyed by K and
// holding values of V. The zero value is not usable; construct one with
// New.
type Engine[K comparable, V any] struct {
	store *storage.Storage
	idx   *index.Arrays

	keyCodec codec.Codec[K]
	valCodec codec.Codec[V]
	hasher   hash.Hasher[K]

	keyFixed    bool
	keyFixedLen int64
	valFixed    bool
	valFixedLen int64

	writeCursor int64
	live        int
	tombstones  int // occupied index slots pointing at a DELETED record; counted toward the 0.75 load-factor bound
	deadRecords int // orphaned log records left behind by Set's overwrite path; never occupies a slot, so excluded from the load factor

	initialLogBytes int64
	pageSize        int64

	defaultTTL time.Duration
	compaction CompactionConfig

	cache adapters.HotCache[K, V]
	bus   *adapters.EventBus[K, V]

	persistence adapters.PersistenceAdapter
	persistKey  string
	ticker      *adapters.Ticker

	log *logrus.Entry

	now func() int64
}

// New constructs an Engine with the given options. Every option is
// optional; the With* functions in option.go list them.
func New[K comparable, V any](opts ...Option[K, V]) (*Engine[K, V], error) {
	cfg := defaultConfig[K, V]()
	for _, o := range opts {
		o(cfg)
	}

	bucketCount := nextPowerOfTwo(cfg.bucketCount)
	if bucketCount < 2 {
		bucketCount = 2
	}

	e := &Engine[K, V]{
		store:           storage.New(cfg.logBytes, cfg.pageSize),
		idx:             index.New(bucketCount),
		keyCodec:        cfg.keyCodec,
		valCodec:        cfg.valCodec,
		hasher:          cfg.hasher,
		writeCursor:     1,
		initialLogBytes: cfg.logBytes,
		pageSize:        cfg.pageSize,
		defaultTTL:      cfg.ttl,
		compaction:      cfg.compaction,
		bus:             adapters.NewEventBus[K, V](),
		persistKey:      cfg.persistKey,
		log:             logrus.WithField("component", "rogue.engine"),
		now:             nowMillis,
	}

	if n, ok := e.keyCodec.FixedLength(); ok {
		e.keyFixed = true
		e.keyFixedLen = int64(n)
	}
	if n, ok := e.valCodec.FixedLength(); ok {
		e.valFixed = true
		e.valFixedLen = int64(n)
	}

	if cfg.sink != nil {
		e.bus.Subscribe(adapters.Listener[K, V]{
			OnSet:    cfg.sink.OnSet,
			OnDelete: cfg.sink.OnDelete,
			OnExpire: cfg.sink.OnExpire,
			OnEvict:  cfg.sink.OnEvict,
			OnClear:  cfg.sink.OnClear,
		})
	}

	if cfg.cacheSize > 0 {
		cache, err := adapters.NewLRUCache[K, V](cfg.cacheSize, func(k K, v V) { e.bus.OnEvict(k, v) })
		if err != nil {
			return nil, fmt.Errorf("rogue: hot cache: %w", err)
		}
		e.cache = cache
	}

	persistence, err := buildPersistence(cfg)
	if err != nil {
		return nil, err
	}
	e.persistence = persistence

	if e.persistence != nil && cfg.syncLoad {
		if err := e.Load(context.Background()); err != nil {
			log.Trace(e.log.WithError(err)).Warn("sync load failed, starting fresh")
		}
	}

	if e.persistence != nil && cfg.saveInterval > 0 {
		e.ticker = adapters.NewTicker(cfg.saveInterval, func(ctx context.Context) error { return e.Save(ctx) })
		e.ticker.Start()
	}

	return e, nil
}

func buildPersistence[K comparable, V any](cfg *config[K, V]) (adapters.PersistenceAdapter, error) {
	if cfg.persistence != nil {
		return cfg.persistence, nil
	}
	switch cfg.persistKind {
	case PersistenceFile:
		return adapters.NewFileAdapter(cfg.persistPath)
	case PersistenceEmbeddedKV:
		return adapters.NewBoltAdapter(cfg.persistPath)
	case PersistenceMemory:
		return adapters.NewMemoryAdapter(), nil
	default:
		return nil, nil
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Size returns the current live-key count.
func (e *Engine[K, V]) Size() int {
	return e.live
}

// Subscribe registers an adapters.Listener for set/delete/expire/evict/
// clear notifications and returns an unsubscribe function.
func (e *Engine[K, V]) Subscribe(l adapters.Listener[K, V]) (unsubscribe func()) {
	return e.bus.Subscribe(l)
}

// Close stops the periodic save ticker, if one is running. It does not
// close a caller-supplied persistence adapter.
func (e *Engine[K, V]) Close() error {
	if e.ticker != nil {
		e.ticker.Stop()
	}
	return nil
}

// Set inserts or overwrites key with value.
func (e *Engine[K, V]) Set(key K, value V, opts ...SetOption) error {
	sc := setConfig{}
	for _, o := range opts {
		o(&sc)
	}
	ttl := e.defaultTTL
	if sc.ttlIsSet {
		ttl = sc.ttl
	}
	var expireAt int64
	if ttl > 0 {
		expireAt = e.now() + ttl.Milliseconds()
	}

	if e.live+e.tombstones >= int(0.75*float64(e.idx.Len())) {
		if err := e.resizeLoadFactor(); err != nil {
			return err
		}
	}

	keyBytes, err := e.encodeKey(key)
	if err != nil {
		return fmt.Errorf("rogue: encode key: %w", err)
	}
	valBytes, err := e.encodeValue(value)
	if err != nil {
		return fmt.Errorf("rogue: encode value: %w", err)
	}

	h := e.hasher(key)

	for attempt := 0; attempt < maxBucketResizeRetries; attempt++ {
		err := e.probeSet(h, keyBytes, valBytes, expireAt)
		if err == nil {
			e.bus.OnSet(key, value)
			if e.cache != nil {
				e.cache.Add(key, value)
			}
			e.maybeAutoCompact()
			return nil
		}
		if !errors.Is(err, ErrTableFull) {
			return err
		}
		if err := e.resizeTableFull(); err != nil {
			return err
		}
	}
	return ErrTableFull
}

// probeSet runs the linear-probe insert/overwrite loop for a single
// attempt. It returns ErrTableFull if probing wraps around without
// finding a slot (should be unreachable given the resize trigger above).
func (e *Engine[K, V]) probeSet(h int32, keyBytes, valBytes []byte, expireAt int64) error {
	// Grow the log before probing: a log-full rebuild replaces the index,
	// so a slot chosen by the probe below would not survive it.
	n := e.recordLen(len(keyBytes), len(valBytes))
	for attempt := 0; e.writeCursor+n > e.store.Len(); attempt++ {
		if attempt == maxLogResizeRetries {
			return ErrCapacityExhausted
		}
		if err := e.resizeLog(); err != nil {
			return err
		}
	}

	mask := e.idx.Mask()
	start := int(uint32(h) & mask)
	i := start
	firstTombstone := -1

	for {
		switch {
		case e.idx.Empty(i):
			insertAt := i
			reuse := firstTombstone != -1
			if reuse {
				insertAt = firstTombstone
			}
			off, err := e.appendRecord(FlagActive, h, expireAt, keyBytes, valBytes)
			if err != nil {
				return err
			}
			e.idx.SetActive(insertAt, h, off)
			if reuse {
				e.tombstones--
			}
			e.live++
			return nil

		case e.idx.IsTombstone(i):
			if firstTombstone == -1 {
				firstTombstone = i
			}

		case e.idx.IsActive(i):
			if e.idx.Hash[i] == h {
				hdr := e.readRecordHeader(e.idx.ActiveOffset(i))
				if hdr.keyLen == int64(len(keyBytes)) && e.keyEqualAt(hdr.keyOff, hdr.keyLen, keyBytes) {
					// Flip the old record to DELETED, then append the new one
					// and repoint the slot at it. The slot itself stays ACTIVE
					// throughout — it never becomes a tombstone slot — so
					// this only orphans a dead record in the log, not an
					// occupied index slot; tracked separately from tombstones
					// so it never inflates the load factor.
					e.store.WriteU8(e.idx.ActiveOffset(i), FlagDeleted)
					e.deadRecords++
					off, err := e.appendRecord(FlagActive, h, expireAt, keyBytes, valBytes)
					if err != nil {
						return err
					}
					e.idx.SetActive(i, h, off)
					return nil
				}
			}
		}

		i = e.idx.Next(i)
		if i == start {
			return ErrTableFull
		}
	}
}

// Get returns the value stored for key, if any live, unexpired record
// exists.
// Get probes for key the same way Has does; the hot cache (if any) only
// short-circuits the value decode once a live, unexpired record is
// confirmed, so it never changes TTL-expiry semantics.
func (e *Engine[K, V]) Get(key K) (V, bool) {
	var zero V
	h := e.hasher(key)
	mask := e.idx.Mask()
	start := int(uint32(h) & mask)
	i := start
	var keyBytes []byte

	for {
		if e.idx.Empty(i) {
			return zero, false
		}
		if e.idx.IsActive(i) && e.idx.Hash[i] == h {
			hdr := e.readRecordHeader(e.idx.ActiveOffset(i))
			if keyBytes == nil {
				var err error
				keyBytes, err = e.encodeKey(key)
				if err != nil {
					return zero, false
				}
			}
			if hdr.keyLen == int64(len(keyBytes)) && e.keyEqualAt(hdr.keyOff, hdr.keyLen, keyBytes) {
				if hdr.expireAt != 0 && e.now() > hdr.expireAt {
					e.expireSlot(i, key)
					return zero, false
				}
				if e.cache != nil {
					if v, ok := e.cache.Get(key); ok {
						return v, true
					}
				}
				val, err := e.decodeValue(hdr)
				if err != nil {
					return zero, false
				}
				if e.cache != nil {
					e.cache.Add(key, val)
				}
				return val, true
			}
		}
		i = e.idx.Next(i)
		if i == start {
			return zero, false
		}
	}
}

// Has reports whether key has a live, unexpired record, applying the
// same lazy-expiry side effect as Get.
func (e *Engine[K, V]) Has(key K) bool {
	h := e.hasher(key)
	mask := e.idx.Mask()
	start := int(uint32(h) & mask)
	i := start
	var keyBytes []byte

	for {
		if e.idx.Empty(i) {
			return false
		}
		if e.idx.IsActive(i) && e.idx.Hash[i] == h {
			hdr := e.readRecordHeader(e.idx.ActiveOffset(i))
			if keyBytes == nil {
				var err error
				keyBytes, err = e.encodeKey(key)
				if err != nil {
					return false
				}
			}
			if hdr.keyLen == int64(len(keyBytes)) && e.keyEqualAt(hdr.keyOff, hdr.keyLen, keyBytes) {
				if hdr.expireAt != 0 && e.now() > hdr.expireAt {
					e.expireSlot(i, key)
					return false
				}
				return true
			}
		}
		i = e.idx.Next(i)
		if i == start {
			return false
		}
	}
}

// Delete removes key, returning whether a live record existed. An
// already-expired record is flipped to DELETED and reported as not
// found, matching Get/Has's lazy-expiry behavior.
func (e *Engine[K, V]) Delete(key K) bool {
	h := e.hasher(key)
	mask := e.idx.Mask()
	start := int(uint32(h) & mask)
	i := start

	keyBytes, err := e.encodeKey(key)
	if err != nil {
		return false
	}

	for {
		if e.idx.Empty(i) {
			return false
		}
		if e.idx.IsActive(i) && e.idx.Hash[i] == h {
			hdr := e.readRecordHeader(e.idx.ActiveOffset(i))
			if hdr.keyLen == int64(len(keyBytes)) && e.keyEqualAt(hdr.keyOff, hdr.keyLen, keyBytes) {
				if hdr.expireAt != 0 && e.now() > hdr.expireAt {
					e.expireSlot(i, key)
					return false
				}
				e.store.WriteU8(e.idx.ActiveOffset(i), FlagDeleted)
				e.idx.Tombstone(i)
				e.live--
				e.tombstones++
				if e.cache != nil {
					e.cache.Remove(key)
				}
				e.bus.OnDelete(key)
				e.maybeAutoCompact()
				return true
			}
		}
		i = e.idx.Next(i)
		if i == start {
			return false
		}
	}
}

// Clear empties the table: both index arrays are zeroed, the write
// cursor resets to 1, and counters reset to zero. The underlying log
// bytes are left in place but unreachable.
func (e *Engine[K, V]) Clear() {
	e.idx.Reset()
	e.writeCursor = 1
	e.live = 0
	e.tombstones = 0
	e.deadRecords = 0
	if e.cache != nil {
		e.cache.Purge()
	}
	e.bus.OnClear()
}

func (e *Engine[K, V]) expireSlot(i int, key K) {
	e.store.WriteU8(e.idx.ActiveOffset(i), FlagDeleted)
	e.idx.Tombstone(i)
	e.live--
	e.tombstones++
	if e.cache != nil {
		e.cache.Remove(key)
	}
	e.bus.OnExpire(key)
}

func (e *Engine[K, V]) maybeAutoCompact() {
	if !e.compaction.AutoCompact {
		return
	}
	// total and dead cover both sources of log waste: real tombstone slots
	// (from Delete/expiry) and orphaned records left behind by overwrites
	// (which never occupy an extra slot, so they're absent from the
	// live+tombstones occupancy count but still bloat the log).
	dead := e.tombstones + e.deadRecords
	total := e.live + dead
	if total < e.compaction.MinSize {
		return
	}
	if float64(dead)/float64(total) > e.compaction.Threshold {
		if err := e.Compact(); err != nil {
			log.Trace(e.log.WithError(err)).Warn("auto-compaction failed")
		}
	}
}

// Save serializes the engine and hands the blob to the configured
// persistence adapter's async Save.
func (e *Engine[K, V]) Save(ctx context.Context) error {
	if e.persistence == nil {
		return ErrNoPersistence
	}
	data, err := e.Serialize()
	if err != nil {
		return err
	}
	return e.persistence.Save(ctx, e.persistKey, data)
}

// SaveSync serializes the engine and saves synchronously. Any failure of
// the adapter's sync path (ErrSyncUnsupported included) is treated as
// "not supported" and the blob is handed to the async Save instead.
func (e *Engine[K, V]) SaveSync() error {
	if e.persistence == nil {
		return ErrNoPersistence
	}
	data, err := e.Serialize()
	if err != nil {
		return err
	}
	if err := e.persistence.SaveSync(e.persistKey, data); err != nil {
		return e.persistence.Save(context.Background(), e.persistKey, data)
	}
	return nil
}

// Load fetches the configured adapter's snapshot and restores it. A
// missing snapshot is treated as "fresh": the engine is left unchanged
// and no error is returned.
func (e *Engine[K, V]) Load(ctx context.Context) error {
	if e.persistence == nil {
		return ErrNoPersistence
	}
	data, err := e.persistence.Load(ctx, e.persistKey)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return e.Deserialize(data)
}
