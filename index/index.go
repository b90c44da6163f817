// Package index holds the two parallel arrays that back the engine's
// open-addressed hash table: the 32-bit hash of each occupied slot and a
// signed 64-bit offset encoding slot state (empty / active / tombstone).
//
// The sign of Offset carries the third state so no extra byte array is
// needed: 0 is empty, >0 points at an ACTIVE record, <0 points (via its
// absolute value) at a DELETED record a probe must step past.
package index

// Arrays is a fixed-size pair of parallel slices, one per bucket.
type Arrays struct {
	Hash   []int32
	Offset []int64
	mask   uint32
}

// New allocates Arrays for the given bucket count, which must already be a
// power of two.
func New(bucketCount int) *Arrays {
	return &Arrays{
		Hash:   make([]int32, bucketCount),
		Offset: make([]int64, bucketCount),
		mask:   uint32(bucketCount - 1),
	}
}

// Len returns the bucket count.
func (a *Arrays) Len() int {
	return len(a.Offset)
}

// Mask returns bucketCount-1, used to fold a hash into a starting slot.
func (a *Arrays) Mask() uint32 {
	return a.mask
}

// Start returns the probe starting slot for hash h.
func (a *Arrays) Start(h int32) int {
	return int(uint32(h) & a.mask)
}

// Next returns the next slot in the linear probe sequence after i.
func (a *Arrays) Next(i int) int {
	return int((uint32(i) + 1) & a.mask)
}

// Empty reports whether slot i holds no record.
func (a *Arrays) Empty(i int) bool {
	return a.Offset[i] == 0
}

// IsActive reports whether slot i points at a live record.
func (a *Arrays) IsActive(i int) bool {
	return a.Offset[i] > 0
}

// IsTombstone reports whether slot i points at a deleted record.
func (a *Arrays) IsTombstone(i int) bool {
	return a.Offset[i] < 0
}

// ActiveOffset returns the (positive) log offset of the active record at i.
// Only valid when IsActive(i).
func (a *Arrays) ActiveOffset(i int) int64 {
	return a.Offset[i]
}

// TombstoneOffset returns the (positive) log offset the tombstone at i
// points at. Only valid when IsTombstone(i).
func (a *Arrays) TombstoneOffset(i int) int64 {
	return -a.Offset[i]
}

// SetActive marks slot i as pointing at an active record at offset with the
// given hash. offset must be > 0.
func (a *Arrays) SetActive(i int, hash int32, offset int64) {
	a.Hash[i] = hash
	a.Offset[i] = offset
}

// Tombstone flips slot i (currently active) into a tombstone in place,
// preserving the hash so probes can still recognize and step past it.
func (a *Arrays) Tombstone(i int) {
	if a.Offset[i] > 0 {
		a.Offset[i] = -a.Offset[i]
	}
}

// Clear zeroes slot i back to empty.
func (a *Arrays) Clear(i int) {
	a.Hash[i] = 0
	a.Offset[i] = 0
}

// Reset zeroes every slot, leaving the bucket count unchanged.
func (a *Arrays) Reset() {
	for i := range a.Hash {
		a.Hash[i] = 0
		a.Offset[i] = 0
	}
}
