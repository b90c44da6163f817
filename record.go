package rogue

import (
	"github.com/patchbrain/rogue/storage"
)

// Flag values for an entry record, per spec.md §3.
const (
	FlagActive  byte = 1
	FlagDeleted byte = 2
)

// recordHeaderBytes is the fixed portion of every record: Flag(1) +
// Hash(4) + ExpireAt(8).
const recordHeaderBytes = 13

// recordHeader is the parsed form of a record's fixed fields plus the
// resolved location and length of its key/value bytes. It is a pure
// function of (store, offset, key/value fixed-length configuration) so it
// can be reused against both the live log and a foreign log being
// replayed from.
type recordHeader struct {
	flag     byte
	hash     int32
	expireAt int64
	keyLen   int64
	valLen   int64
	keyOff   int64
	valOff   int64
	totalLen int64
}

func readRecordHeaderFrom(s *storage.Storage, off int64, keyFixed bool, keyFixedLen int64, valFixed bool, valFixedLen int64) recordHeader {
	flag := s.ReadU8(off)
	h := s.ReadI32(off + 1)
	expireAt := int64(s.ReadU64(off + 5))

	cur := off + recordHeaderBytes
	var keyLen int64
	if keyFixed {
		keyLen = keyFixedLen
	} else {
		keyLen = int64(s.ReadU32(cur))
		cur += 4
	}
	var valLen int64
	if valFixed {
		valLen = valFixedLen
	} else {
		valLen = int64(s.ReadU32(cur))
		cur += 4
	}

	keyOff := cur
	valOff := keyOff + keyLen
	return recordHeader{
		flag:     flag,
		hash:     h,
		expireAt: expireAt,
		keyLen:   keyLen,
		valLen:   valLen,
		keyOff:   keyOff,
		valOff:   valOff,
		totalLen: (valOff + valLen) - off,
	}
}

func (e *Engine[K, V]) readRecordHeader(off int64) recordHeader {
	return readRecordHeaderFrom(e.store, off, e.keyFixed, e.keyFixedLen, e.valFixed, e.valFixedLen)
}

// recordLen reports the total on-log byte length of a record carrying
// keyLen bytes of key and valLen bytes of value, given this engine's
// codec fixed-length configuration.
func (e *Engine[K, V]) recordLen(keyLen, valLen int) int64 {
	n := int64(recordHeaderBytes)
	if !e.keyFixed {
		n += 4
	}
	if !e.valFixed {
		n += 4
	}
	return n + int64(keyLen) + int64(valLen)
}

func (e *Engine[K, V]) writeRecordAt(off int64, flag byte, h int32, expireAt int64, keyBytes, valBytes []byte) {
	e.store.WriteU8(off, flag)
	e.store.WriteI32(off+1, h)
	e.store.WriteU64(off+5, uint64(expireAt))

	cur := off + recordHeaderBytes
	if !e.keyFixed {
		e.store.WriteU32(cur, uint32(len(keyBytes)))
		cur += 4
	}
	if !e.valFixed {
		e.store.WriteU32(cur, uint32(len(valBytes)))
		cur += 4
	}
	e.store.WriteAt(cur, keyBytes)
	e.store.WriteAt(cur+int64(len(keyBytes)), valBytes)
}

// appendRecord writes a new record at the write cursor, growing the log
// (doubling it, up to 3 attempts) if it doesn't currently fit, per
// spec.md §4.4's log-full resize path.
func (e *Engine[K, V]) appendRecord(flag byte, h int32, expireAt int64, keyBytes, valBytes []byte) (int64, error) {
	n := e.recordLen(len(keyBytes), len(valBytes))

	for attempt := 0; attempt < maxLogResizeRetries; attempt++ {
		if e.writeCursor+n <= e.store.Len() {
			off := e.writeCursor
			e.writeRecordAt(off, flag, h, expireAt, keyBytes, valBytes)
			e.writeCursor += n
			return off, nil
		}
		if err := e.resizeLog(); err != nil {
			return 0, err
		}
	}
	return 0, ErrCapacityExhausted
}

// keyEqualAt compares the keyLen bytes stored at keyOff against scratch,
// using the adaptive threshold from spec.md §4.3: a manual byte loop
// below keyCompareThreshold bytes, the storage's bulk comparison above
// it. Both paths must agree; the threshold is purely an optimization.
const keyCompareThreshold = 48

func (e *Engine[K, V]) keyEqualAt(keyOff, keyLen int64, scratch []byte) bool {
	if keyLen != int64(len(scratch)) {
		return false
	}
	if keyLen < keyCompareThreshold {
		for j := int64(0); j < keyLen; j++ {
			if e.store.ReadU8(keyOff+j) != scratch[j] {
				return false
			}
		}
		return true
	}
	return e.store.EqualAt(keyOff, scratch)
}

func (e *Engine[K, V]) decodeKey(h recordHeader) (K, error) {
	var raw []byte
	if view, ok := e.store.TryView(h.keyOff, h.keyLen); ok {
		raw = view
	} else {
		raw = e.store.ReadAt(h.keyOff, h.keyLen)
	}
	return e.keyCodec.Decode(raw, 0, int(h.keyLen))
}

func (e *Engine[K, V]) decodeValue(h recordHeader) (V, error) {
	var raw []byte
	if view, ok := e.store.TryView(h.valOff, h.valLen); ok {
		raw = view
	} else {
		raw = e.store.ReadAt(h.valOff, h.valLen)
	}
	return e.valCodec.Decode(raw, 0, int(h.valLen))
}

func (e *Engine[K, V]) encodeKey(key K) ([]byte, error) {
	n := e.keyCodec.ByteLength(key)
	buf := make([]byte, n)
	if _, err := e.keyCodec.Encode(key, buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *Engine[K, V]) encodeValue(value V) ([]byte, error) {
	n := e.valCodec.ByteLength(value)
	buf := make([]byte, n)
	if _, err := e.valCodec.Encode(value, buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}
