package rogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patchbrain/rogue/adapters"
)

// scenario 6 (spec.md §8): build 100 live keys, delete 30, compact,
// serialize, and restore into a fresh instance.
func TestSnapshot_RoundTripAfterCompact(t *testing.T) {
	e, err := New[string, int](WithCompaction[string, int](CompactionConfig{AutoCompact: false}))
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}
	for i := 0; i < 30; i++ {
		require.True(t, e.Delete(keyN(i)))
	}
	require.NoError(t, e.Compact())
	require.Equal(t, 70, e.Size())

	data, err := e.Serialize()
	require.NoError(t, err)

	restored, err := New[string, int]()
	require.NoError(t, err)
	require.NoError(t, restored.Deserialize(data))

	require.Equal(t, 70, restored.Size())
	for i := 30; i < 100; i++ {
		v, ok := restored.Get(keyN(i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	for i := 0; i < 30; i++ {
		require.False(t, restored.Has(keyN(i)))
	}

	want, err := e.Entries()
	require.NoError(t, err)
	got, err := restored.Entries()
	require.NoError(t, err)
	require.ElementsMatch(t, want, got)
}

// P4 without an intervening compact: serialize/deserialize preserves size,
// every live key, and the tombstone slots (so an already-in-flight probe
// walk isn't disturbed by a restore).
func TestSnapshot_RoundTripWithoutCompact(t *testing.T) {
	e, err := New[string, int](WithBucketCount[string, int](32))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}
	for i := 0; i < 5; i++ {
		require.True(t, e.Delete(keyN(i)))
	}

	data, err := e.Serialize()
	require.NoError(t, err)

	restored, err := New[string, int]()
	require.NoError(t, err)
	require.NoError(t, restored.Deserialize(data))

	require.Equal(t, e.Size(), restored.Size())
	for i := 5; i < 20; i++ {
		v, ok := restored.Get(keyN(i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	for i := 0; i < 5; i++ {
		require.False(t, restored.Has(keyN(i)))
	}

	// A restored instance must still accept new writes and correctly
	// reuse the tombstones the snapshot carried over.
	for i := 0; i < 5; i++ {
		require.NoError(t, restored.Set(keyN(i), i*100))
	}
	for i := 0; i < 5; i++ {
		v, ok := restored.Get(keyN(i))
		require.True(t, ok)
		require.Equal(t, i*100, v)
	}
}

func TestSnapshot_InvalidMagicRejected(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)
	require.NoError(t, e.Set("a", 1))

	data, err := e.Serialize()
	require.NoError(t, err)
	data[0] = 'X'

	require.ErrorIs(t, e.Deserialize(data), ErrInvalidSnapshot)
}

func TestSnapshot_UnsupportedVersionRejected(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)
	require.NoError(t, e.Set("a", 1))

	data, err := e.Serialize()
	require.NoError(t, err)
	data[5] = 99

	require.ErrorIs(t, e.Deserialize(data), ErrUnsupportedVersion)
}

func TestSnapshot_TruncatedBlobRejected(t *testing.T) {
	e, err := New[string, int]()
	require.NoError(t, err)
	require.ErrorIs(t, e.Deserialize([]byte{1, 2, 3}), ErrInvalidSnapshot)
}

// Save/Load round-trip through a configured persistence adapter,
// exercising the adapters.PersistenceAdapter contract end to end.
func TestSnapshot_SaveLoadThroughAdapter(t *testing.T) {
	backing := adapters.NewMemoryAdapter()

	e, err := New[string, int](WithPersistenceAdapter[string, int](backing))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}
	require.NoError(t, e.SaveSync())

	fresh, err := New[string, int](
		WithPersistenceAdapter[string, int](backing),
		WithSyncLoad[string, int](),
	)
	require.NoError(t, err)
	require.Equal(t, 10, fresh.Size())
	for i := 0; i < 10; i++ {
		v, ok := fresh.Get(keyN(i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

// A real FileAdapter round-trips through the filesystem too, but each
// engine instance needs its own directory: FileAdapter holds an exclusive
// flock for its lifetime.
func TestSnapshot_SaveLoadThroughFileAdapter(t *testing.T) {
	dir := t.TempDir()

	e, err := New[string, int](WithPersistenceKind[string, int](PersistenceFile, dir))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Set(keyN(i), i))
	}
	require.NoError(t, e.SaveSync())
	require.NoError(t, e.persistence.(*adapters.FileAdapter).Close())

	fresh, err := New[string, int](
		WithPersistenceKind[string, int](PersistenceFile, dir),
		WithSyncLoad[string, int](),
	)
	require.NoError(t, err)
	defer fresh.persistence.(*adapters.FileAdapter).Close()

	require.Equal(t, 10, fresh.Size())
	for i := 0; i < 10; i++ {
		v, ok := fresh.Get(keyN(i))
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

// Loading with no prior snapshot is "fresh", not an error.
func TestSnapshot_LoadMissingIsFresh(t *testing.T) {
	e, err := New[string, int](WithPersistenceKind[string, int](PersistenceMemory, ""))
	require.NoError(t, err)

	require.NoError(t, e.Load(context.Background()))
	require.Equal(t, 0, e.Size())
}
