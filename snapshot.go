package rogue

import (
	"encoding/binary"
	"math"

	"github.com/patchbrain/rogue/index"
	"github.com/patchbrain/rogue/storage"
)

var snapshotMagic = [5]byte{'R', 'O', 'G', 'U', 'E'}

const snapshotVersion byte = 2

// snapshotHeaderBytes is Magic(5) + Version(1) + Capacity(4) + Size(4) +
// WriteOffset(4) + LogLength(4), per spec.md §4.5.
const snapshotHeaderBytes = 5 + 1 + 4 + 4 + 4 + 4

// Serialize produces a self-describing byte blob of the engine's current
// state. It refuses (ErrLogTooLarge) when the log exceeds what a 32-bit
// offset can represent.
func (e *Engine[K, V]) Serialize() ([]byte, error) {
	if e.writeCursor > math.MaxUint32 {
		return nil, ErrLogTooLarge
	}

	capacity := e.idx.Len()
	logLen := e.writeCursor

	buf := make([]byte, snapshotHeaderBytes+capacity*4+int(logLen))
	pos := 0

	copy(buf[pos:], snapshotMagic[:])
	pos += 5
	buf[pos] = snapshotVersion
	pos++
	binary.LittleEndian.PutUint32(buf[pos:], uint32(capacity))
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(e.live))
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(e.writeCursor))
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(logLen))
	pos += 4

	for i := 0; i < capacity; i++ {
		off := e.idx.Offset[i]
		if off < 0 {
			off = -off
		}
		binary.LittleEndian.PutUint32(buf[pos:], uint32(off))
		pos += 4
	}

	logBytes := e.store.ReadAt(0, logLen)
	copy(buf[pos:], logBytes)

	return buf, nil
}

// Deserialize replaces the engine's state with the snapshot encoded in
// data: for each non-zero bucket offset, the referenced record's Flag and
// hash reconstruct the slot's ACTIVE/DELETED state and hash. The
// tombstone count resets to zero; see DESIGN.md for the rationale.
func (e *Engine[K, V]) Deserialize(data []byte) error {
	if len(data) < snapshotHeaderBytes {
		return ErrInvalidSnapshot
	}
	var magic [5]byte
	copy(magic[:], data[0:5])
	if magic != snapshotMagic {
		return ErrInvalidSnapshot
	}
	if data[5] != snapshotVersion {
		return ErrUnsupportedVersion
	}

	pos := 6
	capacity := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	pos += 4 // Size: recomputed below from the scan, not trusted blindly.
	writeOffset := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	logLength := binary.LittleEndian.Uint32(data[pos:])
	pos += 4

	bucketsStart := pos
	bucketsEnd := bucketsStart + int(capacity)*4
	if bucketsEnd+int(logLength) > len(data) {
		return ErrInvalidSnapshot
	}

	newIdx := index.New(int(capacity))
	newStore := storage.New(int64(logLength), e.pageSize)
	newStore.WriteAt(0, data[bucketsEnd:bucketsEnd+int(logLength)])

	live := 0
	for i := 0; i < int(capacity); i++ {
		absOff := binary.LittleEndian.Uint32(data[bucketsStart+i*4:])
		if absOff == 0 {
			continue
		}
		hdr := readRecordHeaderFrom(newStore, int64(absOff), e.keyFixed, e.keyFixedLen, e.valFixed, e.valFixedLen)
		newIdx.Hash[i] = hdr.hash
		if hdr.flag == FlagActive {
			newIdx.Offset[i] = int64(absOff)
			live++
		} else {
			newIdx.Offset[i] = -int64(absOff)
		}
	}

	e.store = newStore
	e.idx = newIdx
	e.writeCursor = int64(writeOffset)
	e.live = live
	e.tombstones = 0
	// The restored log may still contain orphaned overwritten records, but
	// like tombstones this is only reflected once a runtime mutation
	// re-derives it.
	e.deadRecords = 0
	return nil
}
