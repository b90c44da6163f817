package rogue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Insertion order for iteration purposes is "order of the most recent
// write for each live key" (spec.md §4.3): an update moves a key to the
// tail, and a delete removes it entirely.
func TestIterate_OrderIsMostRecentWrite(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)

	require.NoError(t, e.Set("a", 1))
	require.NoError(t, e.Set("b", 2))
	require.NoError(t, e.Set("c", 3))
	require.NoError(t, e.Set("a", 10)) // re-append, moves "a" to the tail
	require.True(t, e.Delete("b"))

	entries, err := e.Entries()
	require.NoError(t, err)

	var keys []string
	for _, ent := range entries {
		keys = append(keys, ent.Key)
	}
	require.Equal(t, []string{"c", "a"}, keys)
	require.Equal(t, 10, entries[1].Value)
}

// Keys/Values decode only their half of each record and agree with
// Entries on membership.
func TestIterate_KeysAndValuesMatchEntries(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)

	want := map[string]int{}
	for i := 0; i < 30; i++ {
		require.NoError(t, e.Set(keyN(i), i))
		want[keyN(i)] = i
	}

	keys, err := e.Keys()
	require.NoError(t, err)
	values, err := e.Values()
	require.NoError(t, err)
	entries, err := e.Entries()
	require.NoError(t, err)

	require.Len(t, keys, len(want))
	require.Len(t, values, len(want))
	require.Len(t, entries, len(want))

	for _, ent := range entries {
		require.Equal(t, want[ent.Key], ent.Value)
	}
}

// Iteration is a read-only observation: it must not flip expired records
// to DELETED or emit expire, unlike Get/Has/Delete's lazy expiry.
func TestIterate_SkipsExpiredWithoutMutating(t *testing.T) {
	now := int64(0)
	var expired []string
	e, err := New[string, int](WithEventSink[string, int](&captureSink[string, int]{
		onExpire: func(k string) { expired = append(expired, k) },
	}))
	require.NoError(t, err)
	e.now = func() int64 { return now }

	require.NoError(t, e.Set("gone", 1, WithEntryTTL(10*time.Millisecond)))
	require.NoError(t, e.Set("stays", 2, WithEntryTTL(0)))

	now = 1000
	entries, err := e.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "stays", entries[0].Key)
	require.Empty(t, expired, "iteration must not emit expire")
	require.Equal(t, 2, e.live, "iteration must not flip the expired record's index slot")

	// A subsequent Get is what actually applies the lazy-expiry side
	// effect and emits expire, exactly once.
	_, ok := e.Get("gone")
	require.False(t, ok)
	require.Equal(t, []string{"gone"}, expired)
	require.Equal(t, 1, e.live)
}

// RangeContext stops early when fn returns false and honors context
// cancellation between batches.
func TestIterate_RangeStopsEarly(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}

	seen := 0
	err = e.Range(func(Entry[string, int]) bool {
		seen++
		return seen < 3
	})
	require.NoError(t, err)
	require.Equal(t, 3, seen)
}

func TestIterate_RangeContextCancellation(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	err = e.RangeContext(ctx, 5, func(Entry[string, int]) bool {
		seen++
		if seen == 5 {
			cancel()
		}
		return true
	})
	require.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, seen, 5)
}
