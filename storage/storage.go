// Package storage implements the paged, GC-external byte region the engine
// addresses all keys and values through. Callers never see a page; every
// offset is a flat, logically contiguous address into the region.
package storage

import (
	"encoding/binary"
	"fmt"
)

// PageSize is the default size of a single page. Some host runtimes cap a
// single allocation well below this; callers that need a smaller page size
// (e.g. for tests that want to exercise cross-page addressing) pass one to
// New.
const PageSize = 1 << 30

type page struct {
	buf []byte
}

// Storage is a flat, growable byte address space backed by a sequence of
// fixed-size pages plus a single-page fast path.
type Storage struct {
	pageSize int64
	length   int64
	pages    []*page
	fast     *page // set iff length <= pageSize; lets primitives skip the page lookup
}

// New allocates a Storage of length bytes, split across pages of pageSize
// bytes (PageSize if pageSize <= 0).
func New(length int64, pageSize int64) *Storage {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	s := &Storage{pageSize: pageSize}
	s.grow(length)
	return s
}

// Len returns the total addressable length in bytes.
func (s *Storage) Len() int64 {
	return s.length
}

func (s *Storage) numPages(length int64) int {
	if length == 0 {
		return 0
	}
	n := length / s.pageSize
	if length%s.pageSize != 0 {
		n++
	}
	return int(n)
}

// grow extends the page list to cover length bytes, first reallocating a
// short last page (copying its bytes) to the size the new length gives it.
// It never shrinks pages that are kept; Resize handles truncation and
// reallocation of the boundary page when shrinking.
func (s *Storage) grow(length int64) {
	want := s.numPages(length)
	if n := len(s.pages); n > 0 {
		last := s.pages[n-1]
		lastSize := s.pageSize
		if int64(n)*s.pageSize > length {
			lastSize = length - int64(n-1)*s.pageSize
		}
		if int64(len(last.buf)) < lastSize {
			nb := make([]byte, lastSize)
			copy(nb, last.buf)
			last.buf = nb
		}
	}
	for len(s.pages) < want {
		idx := len(s.pages)
		sz := s.pageSize
		if int64(idx+1)*s.pageSize > length {
			sz = length - int64(idx)*s.pageSize
		}
		s.pages = append(s.pages, &page{buf: make([]byte, sz)})
	}
	s.length = length
	s.refreshFast()
}

func (s *Storage) refreshFast() {
	if s.length <= s.pageSize && len(s.pages) == 1 {
		s.fast = s.pages[0]
	} else {
		s.fast = nil
	}
}

// Resize grows or shrinks the storage to newLength bytes. Growing enlarges
// a short last page and appends pages; shrinking truncates pages past the new boundary and reallocates
// (copying forward) any kept page whose size must change.
func (s *Storage) Resize(newLength int64) {
	if newLength < 0 {
		panic("storage: negative resize length")
	}
	if newLength >= s.length {
		s.grow(newLength)
		return
	}

	want := s.numPages(newLength)
	s.pages = s.pages[:want]
	if want > 0 {
		last := s.pages[want-1]
		lastSize := newLength - int64(want-1)*s.pageSize
		if int64(len(last.buf)) != lastSize {
			nb := make([]byte, lastSize)
			copy(nb, last.buf)
			last.buf = nb
		}
	}
	s.length = newLength
	s.refreshFast()
}

func (s *Storage) locate(offset int64) (pageIdx int, pageOff int64) {
	if s.fast != nil {
		return 0, offset
	}
	return int(offset / s.pageSize), offset % s.pageSize
}

func (s *Storage) checkRange(offset, n int64) {
	if offset < 0 || n < 0 || offset+n > s.length {
		panic(fmt.Sprintf("storage: out of range access at offset=%d len=%d (storage length=%d)", offset, n, s.length))
	}
}

// ReadU8 reads a single byte at offset.
func (s *Storage) ReadU8(offset int64) byte {
	s.checkRange(offset, 1)
	if s.fast != nil {
		return s.fast.buf[offset]
	}
	pi, po := s.locate(offset)
	return s.pages[pi].buf[po]
}

// WriteU8 writes a single byte at offset.
func (s *Storage) WriteU8(offset int64, v byte) {
	s.checkRange(offset, 1)
	if s.fast != nil {
		s.fast.buf[offset] = v
		return
	}
	pi, po := s.locate(offset)
	s.pages[pi].buf[po] = v
}

// ReadU32 reads a little-endian uint32 at offset, splitting across page
// boundaries if necessary.
func (s *Storage) ReadU32(offset int64) uint32 {
	var b [4]byte
	s.readBytes(offset, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// WriteU32 writes a little-endian uint32 at offset.
func (s *Storage) WriteU32(offset int64, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.writeBytes(offset, b[:])
}

// ReadI32 reads a little-endian int32 at offset.
func (s *Storage) ReadI32(offset int64) int32 {
	return int32(s.ReadU32(offset))
}

// WriteI32 writes a little-endian int32 at offset.
func (s *Storage) WriteI32(offset int64, v int32) {
	s.WriteU32(offset, uint32(v))
}

// ReadU64 reads a little-endian uint64 at offset, sharing ReadU32's
// page-splitting readBytes path rather than a distinct one.
func (s *Storage) ReadU64(offset int64) uint64 {
	var b [8]byte
	s.readBytes(offset, b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// WriteU64 writes a little-endian uint64 at offset.
func (s *Storage) WriteU64(offset int64, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	s.writeBytes(offset, b[:])
}

// WriteAt copies src into the storage starting at offset, splitting the
// copy across page boundaries as needed.
func (s *Storage) WriteAt(offset int64, src []byte) {
	s.writeBytes(offset, src)
}

// ReadAt returns a copy of length bytes starting at offset.
func (s *Storage) ReadAt(offset int64, length int64) []byte {
	dst := make([]byte, length)
	s.readBytes(offset, dst)
	return dst
}

// TryView returns a zero-copy view into the storage when [offset,
// offset+length) lies within a single page. The second return value is
// false when the range straddles a page boundary, in which case the caller
// must fall back to ReadAt.
func (s *Storage) TryView(offset, length int64) ([]byte, bool) {
	s.checkRange(offset, length)
	if s.fast != nil {
		return s.fast.buf[offset : offset+length], true
	}
	pi, po := s.locate(offset)
	page := s.pages[pi]
	if po+length > int64(len(page.buf)) {
		return nil, false
	}
	return page.buf[po : po+length], true
}

// EqualAt reports whether the length bytes at offset equal other
// byte-for-byte, using the bulk comparison path (no per-byte Go loop in the
// caller).
func (s *Storage) EqualAt(offset int64, other []byte) bool {
	length := int64(len(other))
	if view, ok := s.TryView(offset, length); ok {
		return bytesEqual(view, other)
	}
	got := s.ReadAt(offset, length)
	return bytesEqual(got, other)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Storage) readBytes(offset int64, dst []byte) {
	n := int64(len(dst))
	s.checkRange(offset, n)
	if s.fast != nil {
		copy(dst, s.fast.buf[offset:offset+n])
		return
	}
	pi, po := s.locate(offset)
	remaining := dst
	for len(remaining) > 0 {
		page := s.pages[pi]
		avail := int64(len(page.buf)) - po
		chunk := int64(len(remaining))
		if chunk > avail {
			chunk = avail
		}
		copy(remaining[:chunk], page.buf[po:po+chunk])
		remaining = remaining[chunk:]
		pi++
		po = 0
	}
}

func (s *Storage) writeBytes(offset int64, src []byte) {
	n := int64(len(src))
	s.checkRange(offset, n)
	if s.fast != nil {
		copy(s.fast.buf[offset:offset+n], src)
		return
	}
	pi, po := s.locate(offset)
	remaining := src
	for len(remaining) > 0 {
		page := s.pages[pi]
		avail := int64(len(page.buf)) - po
		chunk := int64(len(remaining))
		if chunk > avail {
			chunk = avail
		}
		copy(page.buf[po:po+chunk], remaining[:chunk])
		remaining = remaining[chunk:]
		pi++
		po = 0
	}
}
