package adapters

import "errors"

// ErrSyncUnsupported is returned by a PersistenceAdapter's SaveSync/LoadSync
// when it only supports the async path.
var ErrSyncUnsupported = errors.New("adapters: synchronous operation not supported")

type nopSink[K comparable, V any] struct{}

// NopSink returns an EventSink whose methods do nothing, used whenever the
// caller configures no subscribers.
func NopSink[K comparable, V any]() EventSink[K, V] {
	return nopSink[K, V]{}
}

func (nopSink[K, V]) OnSet(K, V)   {}
func (nopSink[K, V]) OnDelete(K)   {}
func (nopSink[K, V]) OnExpire(K)   {}
func (nopSink[K, V]) OnEvict(K, V) {}
func (nopSink[K, V]) OnClear()     {}
