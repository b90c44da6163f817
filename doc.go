// Package rogue is an embedded, in-process key-value engine that stores
// keys and values in a paged, garbage-collector-external byte region and
// indexes them with an open-addressed hash table using linear probing and
// tombstones. Resident memory scales with packed entry bytes rather than
// per-entry object overhead, and the paged log keeps tracked heap objects
// at O(1) regardless of entry count.
//
// Persistence, a periodic save tick, a hot-item cache, and an event sink
// are external collaborators reached only through the interfaces in
// package adapters; the core never imports a concrete adapter.
package rogue
