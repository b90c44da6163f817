package rogue

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchbrain/rogue/adapters"
	"github.com/patchbrain/rogue/hash"
)

// scenario 1 (spec.md §8): basic set/get across mixed value shapes.
func TestEngine_Basic(t *testing.T) {
	type foo struct {
		Bar int `json:"bar"`
	}
	e, err := New[string, any]()
	require.NoError(t, err)

	require.NoError(t, e.Set("hello", "world"))
	require.NoError(t, e.Set("foo", foo{Bar: 123}))

	require.Equal(t, 2, e.Size())

	v, ok := e.Get("hello")
	require.True(t, ok)
	require.Equal(t, "world", v)

	v, ok = e.Get("foo")
	require.True(t, ok)
	require.Equal(t, map[string]any{"bar": float64(123)}, v)

	_, ok = e.Get("missing")
	require.False(t, ok)
}

// scenario 2: forced collisions via a constant hasher exercise the probe
// sequence, tombstone skip-over, and tombstone-slot reuse when a deleted
// key is set again.
func TestEngine_ForcedCollisions(t *testing.T) {
	e, err := New[string, int](
		WithHasher[string, int](hash.Constant[string](1)),
		WithBucketCount[string, int](16),
	)
	require.NoError(t, err)

	require.NoError(t, e.Set("1", 1))
	require.NoError(t, e.Set("2", 2))
	require.NoError(t, e.Set("3", 3))
	require.True(t, e.Delete("2"))

	v, ok := e.Get("1")
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = e.Get("3")
	require.True(t, ok)
	require.Equal(t, 3, v)

	require.False(t, e.Has("2"))

	require.NoError(t, e.Set("2", 20))
	v, ok = e.Get("2")
	require.True(t, ok)
	require.Equal(t, 20, v)
}

// scenario 3: repeated set/delete of the same key under a small fixed
// capacity must reuse the tombstone slot rather than ever growing the
// table (P8).
func TestEngine_TombstoneReuseUnderPressure(t *testing.T) {
	e, err := New[string, int](
		WithBucketCount[string, int](10),
		WithLogBytes[string, int](4096),
	)
	require.NoError(t, err)

	startBuckets := e.idx.Len()
	for i := 0; i < 1000; i++ {
		require.NoError(t, e.Set("t", i))
		require.True(t, e.Delete("t"))
	}

	assert.Equal(t, 0, e.Size())
	assert.Equal(t, startBuckets, e.idx.Len(), "tombstone reuse must never force a bucket rehash")
}

// scenario 4: default TTL expiry, including the exactly-once expire event.
func TestEngine_TTLExpiry(t *testing.T) {
	now := int64(0)
	var expired []string

	e, err := New[string, string](
		WithTTL[string, string](1000*time.Millisecond),
		WithEventSink[string, string](&captureSink[string, string]{onExpire: func(k string) { expired = append(expired, k) }}),
	)
	require.NoError(t, err)
	e.now = func() int64 { return now }

	require.NoError(t, e.Set("k1", "v1"))

	now = 500
	v, ok := e.Get("k1")
	require.True(t, ok)
	require.Equal(t, "v1", v)

	now = 1001
	_, ok = e.Get("k1")
	require.False(t, ok)
	require.Equal(t, []string{"k1"}, expired)

	// A second Get must not re-emit expire: the slot is already a
	// tombstone, so probing reports "not found" directly.
	_, ok = e.Get("k1")
	require.False(t, ok)
	require.Equal(t, []string{"k1"}, expired)
}

// WithEntryTTL(0) overrides a non-zero default TTL to mean "never expire".
func TestEngine_PerEntryTTLOverridesDefault(t *testing.T) {
	now := int64(0)
	e, err := New[string, string](WithTTL[string, string](100 * time.Millisecond))
	require.NoError(t, err)
	e.now = func() int64 { return now }

	require.NoError(t, e.Set("perm", "v", WithEntryTTL(0)))
	now = 10_000
	v, ok := e.Get("perm")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

// scenario 5: a tiny initial bucket count and log size force multiple
// load-factor and log-full resizes across a batch of inserts.
func TestEngine_ResizeCorrectness(t *testing.T) {
	e, err := New[string, string](
		WithBucketCount[string, string](4),
		WithLogBytes[string, string](64),
	)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		k := keyN(i)
		require.NoError(t, e.Set(k, valN(i)))
	}

	require.Equal(t, 20, e.Size())
	for i := 0; i < 20; i++ {
		v, ok := e.Get(keyN(i))
		require.True(t, ok, "key %s must be retrievable after resize", keyN(i))
		require.Equal(t, valN(i), v)
	}
}

func keyN(i int) string { return "k" + strconv.Itoa(i) }
func valN(i int) string { return "v" + strconv.Itoa(i) }

// P2/P7: size tracks live distinct keys and the load factor bound holds
// after every successful Set, across a longer run that overwrites keys.
func TestEngine_SizeAndLoadFactorInvariants(t *testing.T) {
	e, err := New[int, int](WithBucketCount[int, int](8))
	require.NoError(t, err)

	live := map[int]int{}
	for i := 0; i < 500; i++ {
		k := i % 200
		require.NoError(t, e.Set(k, i))
		live[k] = i

		loadFactor := float64(e.live+e.tombstones) / float64(e.idx.Len())
		require.LessOrEqual(t, loadFactor, 0.75+1e-9)
	}
	require.Equal(t, len(live), e.Size())
	for k, want := range live {
		got, ok := e.Get(k)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

// P3: has and get must agree on presence for every key.
func TestEngine_HasAgreesWithGet(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)

	require.NoError(t, e.Set("a", 1))
	require.NoError(t, e.Set("b", 2))
	require.True(t, e.Delete("b"))

	for _, k := range []string{"a", "b", "missing"} {
		_, ok := e.Get(k)
		require.Equal(t, ok, e.Has(k), "Has/Get disagreed on key %q", k)
	}
}

// scenario 6 is covered in snapshot_test.go (round-trip after compaction).

// P6: Clear resets size and iteration, and the table remains usable
// afterward.
func TestEngine_ClearIdempotence(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}
	require.Equal(t, 10, e.Size())

	e.Clear()
	require.Equal(t, 0, e.Size())
	entries, err := e.Entries()
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, e.Set("k", 99))
	v, ok := e.Get("k")
	require.True(t, ok)
	require.Equal(t, 99, v)
}

// Delete on an already-deleted or missing key reports false, never an
// error, and does not disturb live entries.
func TestEngine_DeleteMissingReturnsFalse(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)

	require.False(t, e.Delete("nope"))
	require.NoError(t, e.Set("k", 1))
	require.True(t, e.Delete("k"))
	require.False(t, e.Delete("k"))
}

// The event bus fires Set/Delete/Clear notifications in the shape §4.6
// describes.
func TestEngine_EventSinkNotifications(t *testing.T) {
	var sets, deletes, clears int
	e, err := New[string, int](WithEventSink[string, int](&captureSink[string, int]{
		onSet:    func(string, int) { sets++ },
		onDelete: func(string) { deletes++ },
		onClear:  func() { clears++ },
	}))
	require.NoError(t, err)

	require.NoError(t, e.Set("a", 1))
	require.NoError(t, e.Set("a", 2)) // update still fires OnSet
	require.True(t, e.Delete("a"))
	e.Clear()

	require.Equal(t, 2, sets)
	require.Equal(t, 1, deletes)
	require.Equal(t, 1, clears)
}

// The hot cache is purely a latency optimization: disabling it must never
// change observable Get/Has results.
func TestEngine_HotCacheDoesNotAffectSemantics(t *testing.T) {
	withCache, err := New[string, int](WithCacheSize[string, int](4))
	require.NoError(t, err)
	withoutCache, err := New[string, int]()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, withCache.Set(keyN(i), i))
		require.NoError(t, withoutCache.Set(keyN(i), i))
	}
	require.True(t, withCache.Delete(keyN(3)))
	require.True(t, withoutCache.Delete(keyN(3)))

	for i := 0; i < 10; i++ {
		v1, ok1 := withCache.Get(keyN(i))
		v2, ok2 := withoutCache.Get(keyN(i))
		require.Equal(t, ok2, ok1)
		require.Equal(t, v2, v1)
	}
}

// captureSink is a test-only adapters.EventSink that records events via
// caller-supplied callbacks, leaving unset callbacks as no-ops.
type captureSink[K comparable, V any] struct {
	onSet    func(K, V)
	onDelete func(K)
	onExpire func(K)
	onEvict  func(K, V)
	onClear  func()
}

var _ adapters.EventSink[string, int] = (*captureSink[string, int])(nil)

func (c *captureSink[K, V]) OnSet(k K, v V) {
	if c.onSet != nil {
		c.onSet(k, v)
	}
}
func (c *captureSink[K, V]) OnDelete(k K) {
	if c.onDelete != nil {
		c.onDelete(k)
	}
}
func (c *captureSink[K, V]) OnExpire(k K) {
	if c.onExpire != nil {
		c.onExpire(k)
	}
}
func (c *captureSink[K, V]) OnEvict(k K, v V) {
	if c.onEvict != nil {
		c.onEvict(k, v)
	}
}
func (c *captureSink[K, V]) OnClear() {
	if c.onClear != nil {
		c.onClear()
	}
}
