// Package adapters holds the external collaborators the core consumes
// through narrow interfaces: a persistence backend, a periodic save
// scheduler, a bounded hot-item cache, and an event sink. The engine never
// imports a concrete adapter; it only ever depends on these contracts.
package adapters

import "context"

// PersistenceAdapter saves and loads an opaque snapshot blob under a key.
// The core treats a sync-path failure as "not supported" and falls back
// to the async path; a missing key on Load is "fresh", not an error.
type PersistenceAdapter interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)

	// SaveSync and LoadSync are best-effort synchronous variants. An
	// adapter that cannot support them returns ErrSyncUnsupported.
	SaveSync(key string, data []byte) error
	LoadSync(key string) ([]byte, error)
}

// EventSink receives notifications of mutating operations. Every method is
// fire-and-forget from the engine's perspective: a sink must not block the
// calling goroutine for long, and a nil Sink (via NopSink) is always safe
// to call.
type EventSink[K comparable, V any] interface {
	OnSet(key K, value V)
	OnDelete(key K)
	OnExpire(key K)
	OnEvict(key K, value V)
	OnClear()
}

// HotCache is a bounded most-recently-used mapping consulted on Get and
// updated on Get/Set. It never affects correctness — only latency — so the
// engine must work identically whether or not one is configured.
type HotCache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Add(key K, value V)
	Remove(key K)
	Purge()
}
