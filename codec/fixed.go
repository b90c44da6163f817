package codec

import "encoding/binary"

// Uint64 is a fixed 8-byte little-endian Codec, letting the engine omit
// the length field for this side of the record.
type Uint64 struct{}

func (Uint64) Encode(v uint64, dst []byte, offset int) (int, error) {
	binary.LittleEndian.PutUint64(dst[offset:offset+8], v)
	return 8, nil
}

func (Uint64) Decode(src []byte, offset, length int) (uint64, error) {
	return binary.LittleEndian.Uint64(src[offset : offset+8]), nil
}

func (Uint64) ByteLength(uint64) int {
	return 8
}

func (Uint64) FixedLength() (int, bool) {
	return 8, true
}

// Int64 is a fixed 8-byte little-endian Codec for signed integers.
type Int64 struct{}

func (Int64) Encode(v int64, dst []byte, offset int) (int, error) {
	binary.LittleEndian.PutUint64(dst[offset:offset+8], uint64(v))
	return 8, nil
}

func (Int64) Decode(src []byte, offset, length int) (int64, error) {
	return int64(binary.LittleEndian.Uint64(src[offset : offset+8])), nil
}

func (Int64) ByteLength(int64) int {
	return 8
}

func (Int64) FixedLength() (int, bool) {
	return 8, true
}
