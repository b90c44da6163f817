package rogue

import "errors"

// Sentinel errors the engine can surface. Capacity growth is handled
// internally and retried; these only escape once retries are exhausted or
// the condition truly cannot be recovered locally.
var (
	// ErrCapacityExhausted means the log could not be grown enough to fit
	// an append after the configured number of retries.
	ErrCapacityExhausted = errors.New("rogue: log capacity exhausted")

	// ErrTableFull means probing wrapped all the way around without
	// finding a slot even after doubling the bucket count. Given the
	// load-factor resize trigger, this should be unreachable.
	ErrTableFull = errors.New("rogue: hash table full")

	// ErrInvalidSnapshot means the magic number did not match or the blob
	// is shorter than its header and declared sizes require.
	ErrInvalidSnapshot = errors.New("rogue: invalid snapshot")

	// ErrUnsupportedVersion means the snapshot's version byte is not one
	// this build knows how to restore.
	ErrUnsupportedVersion = errors.New("rogue: unsupported snapshot version")

	// ErrLogTooLarge means the log exceeds what a 32-bit snapshot offset
	// can represent; Serialize refuses rather than silently truncating.
	ErrLogTooLarge = errors.New("rogue: log exceeds 4 GiB, cannot represent in a v2 snapshot")

	// ErrNoPersistence means Save/Load was called without a configured
	// PersistenceAdapter.
	ErrNoPersistence = errors.New("rogue: no persistence adapter configured")
)
