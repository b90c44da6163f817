package codec

// Bytes is a variable-length Codec for []byte keys and values. The decoded
// slice is always a fresh copy, never a view into the caller's buffer.
type Bytes struct{}

func (Bytes) Encode(v []byte, dst []byte, offset int) (int, error) {
	n := copy(dst[offset:], v)
	return n, nil
}

func (Bytes) Decode(src []byte, offset, length int) ([]byte, error) {
	out := make([]byte, length)
	copy(out, src[offset:offset+length])
	return out, nil
}

func (Bytes) ByteLength(v []byte) int {
	return len(v)
}

func (Bytes) FixedLength() (int, bool) {
	return 0, false
}
