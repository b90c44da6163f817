package rogue

import (
	"context"

	"github.com/patchbrain/rogue/index"
	"github.com/patchbrain/rogue/storage"
	"github.com/patchbrain/rogue/util/log"
)

// resizeLoadFactor doubles both the bucket count and the log size, per
// spec.md §4.4's load-factor resize.
func (e *Engine[K, V]) resizeLoadFactor() error {
	return e.rebuild(e.idx.Len()*2, e.store.Len()*2)
}

// resizeTableFull doubles only the bucket count, used when a probe
// wraps around without finding a slot.
func (e *Engine[K, V]) resizeTableFull() error {
	return e.rebuild(e.idx.Len()*2, e.store.Len())
}

// resizeLog doubles only the log size, used when an append would
// overflow it.
func (e *Engine[K, V]) resizeLog() error {
	return e.rebuild(e.idx.Len(), e.store.Len()*2)
}

// rebuild allocates a fresh log and index of the given sizes and replays
// every ACTIVE record from the current log into them, per spec.md §4.4's
// replay protocol: bulk byte copy, no decode/encode, reprobe from
// hash&newMask for the first empty slot.
func (e *Engine[K, V]) rebuild(newBucketCount int, newLogLen int64) error {
	newStore := storage.New(newLogLen, e.pageSize)
	newIdx := index.New(newBucketCount)

	newCursor := e.replay(e.store, e.writeCursor, newStore, newIdx)

	log.Trace(e.log.WithFields(map[string]interface{}{
		"buckets": newBucketCount,
		"logLen":  newLogLen,
	})).Info("resized")

	e.store = newStore
	e.idx = newIdx
	e.writeCursor = newCursor
	// Replay only carries ACTIVE records forward, so no tombstone slots and
	// no orphaned overwritten records survive a rebuild, regardless of which
	// trigger caused it.
	e.tombstones = 0
	e.deadRecords = 0
	return nil
}

// replay walks oldStore from offset 1 to oldWriteCursor, copying every
// ACTIVE record's raw bytes (header included) to the tail of newStore and
// reinserting it into newIdx by reprobing from its hash. It returns the
// write cursor for newStore after the copy.
func (e *Engine[K, V]) replay(oldStore *storage.Storage, oldWriteCursor int64, newStore *storage.Storage, newIdx *index.Arrays) int64 {
	cursor := int64(1)
	off := int64(1)
	mask := newIdx.Mask()

	for off < oldWriteCursor {
		hdr := readRecordHeaderFrom(oldStore, off, e.keyFixed, e.keyFixedLen, e.valFixed, e.valFixedLen)
		if hdr.flag == FlagActive {
			raw := oldStore.ReadAt(off, hdr.totalLen)
			newStore.WriteAt(cursor, raw)

			j := int(uint32(hdr.hash) & mask)
			for !newIdx.Empty(j) {
				j = newIdx.Next(j)
			}
			newIdx.SetActive(j, hdr.hash, cursor)
			cursor += hdr.totalLen
		}
		off += hdr.totalLen
	}
	return cursor
}

// findSlotForOffset locates the index slot currently pointing at the
// active record at off, starting the probe at hash&mask. Used by Compact
// to update the index for a record it flips to DELETED while sweeping
// the log directly (rather than probing by key).
func (e *Engine[K, V]) findSlotForOffset(h int32, off int64) int {
	mask := e.idx.Mask()
	start := int(uint32(h) & mask)
	i := start
	for {
		if e.idx.Empty(i) {
			return -1
		}
		if e.idx.IsActive(i) && e.idx.ActiveOffset(i) == off {
			return i
		}
		i = e.idx.Next(i)
		if i == start {
			return -1
		}
	}
}

// Compact sweeps the log for expired ACTIVE records (flipping them to
// DELETED and emitting expire), then reallocates the log to
// max(requiredBytes*1.2, initialLogBytes) and replays live records into
// it, resetting the tombstone count to zero. If a persistence adapter is
// configured, it triggers an async save afterward.
func (e *Engine[K, V]) Compact() error {
	now := e.now()

	off := int64(1)
	for off < e.writeCursor {
		hdr := e.readRecordHeader(off)
		if hdr.flag == FlagActive && hdr.expireAt != 0 && now > hdr.expireAt {
			if i := e.findSlotForOffset(hdr.hash, off); i >= 0 {
				key, err := e.decodeKey(hdr)
				if err == nil {
					e.expireSlot(i, key)
				} else {
					// Can't name the key; still reclaim the slot.
					e.idx.Tombstone(i)
					e.live--
					e.tombstones++
				}
			}
		}
		off += hdr.totalLen
	}

	var required int64 = 1
	off = int64(1)
	for off < e.writeCursor {
		hdr := e.readRecordHeader(off)
		if hdr.flag == FlagActive {
			required += hdr.totalLen
		}
		off += hdr.totalLen
	}

	newLen := required * 12 / 10
	if newLen < e.initialLogBytes {
		newLen = e.initialLogBytes
	}

	if err := e.rebuild(e.idx.Len(), newLen); err != nil {
		return err
	}

	if e.persistence != nil {
		if err := e.Save(context.Background()); err != nil {
			log.Trace(e.log.WithError(err)).Warn("post-compaction save failed")
		}
	}
	return nil
}
