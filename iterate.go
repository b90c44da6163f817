package rogue

import "context"

// Entry is a decoded key/value pair returned by the iteration methods.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// defaultBatchSize is how many records RangeContext scans between
// context-cancellation checks when the caller passes 0.
const defaultBatchSize = 1024

// Entries returns every live, unexpired entry, in order of most recent
// write. Iteration never mutates engine state: expired records are
// skipped, not flipped.
func (e *Engine[K, V]) Entries() ([]Entry[K, V], error) {
	var out []Entry[K, V]
	err := e.Range(func(ent Entry[K, V]) bool {
		out = append(out, ent)
		return true
	})
	return out, err
}

// Keys returns the keys of every live, unexpired entry, decoding only
// the key half of each record.
func (e *Engine[K, V]) Keys() ([]K, error) {
	var out []K
	now := e.now()
	off := int64(1)
	for off < e.writeCursor {
		hdr := e.readRecordHeader(off)
		if hdr.flag == FlagActive && (hdr.expireAt == 0 || now <= hdr.expireAt) {
			k, err := e.decodeKey(hdr)
			if err != nil {
				return nil, err
			}
			out = append(out, k)
		}
		off += hdr.totalLen
	}
	return out, nil
}

// Values returns the values of every live, unexpired entry, decoding
// only the value half of each record.
func (e *Engine[K, V]) Values() ([]V, error) {
	var out []V
	now := e.now()
	off := int64(1)
	for off < e.writeCursor {
		hdr := e.readRecordHeader(off)
		if hdr.flag == FlagActive && (hdr.expireAt == 0 || now <= hdr.expireAt) {
			v, err := e.decodeValue(hdr)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		off += hdr.totalLen
	}
	return out, nil
}

// Range walks every live, unexpired entry, calling fn for each. It stops
// early if fn returns false. Equivalent to RangeContext with a
// background context and the default batch size.
func (e *Engine[K, V]) Range(fn func(Entry[K, V]) bool) error {
	return e.RangeContext(context.Background(), 0, fn)
}

// RangeContext is Range's cooperative variant: every batchSize records
// (defaultBatchSize if <= 0) it checks ctx for cancellation and returns
// ctx.Err() if it has fired. This is purely an embedding nicety per
// spec.md §5's "cooperative long scans" — the underlying scan is
// synchronous and restartable from the log tail regardless.
func (e *Engine[K, V]) RangeContext(ctx context.Context, batchSize int, fn func(Entry[K, V]) bool) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	now := e.now()
	off := int64(1)
	scanned := 0

	for off < e.writeCursor {
		hdr := e.readRecordHeader(off)
		if hdr.flag == FlagActive && (hdr.expireAt == 0 || now <= hdr.expireAt) {
			k, err := e.decodeKey(hdr)
			if err != nil {
				return err
			}
			v, err := e.decodeValue(hdr)
			if err != nil {
				return err
			}
			if !fn(Entry[K, V]{Key: k, Value: v}) {
				return nil
			}
		}
		off += hdr.totalLen

		scanned++
		if scanned%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
	return nil
}
