// Package codec defines the Codec capability consumed by the engine and
// supplies concrete codecs for common key and value shapes. The engine
// never interprets key or value bytes itself; every encode/decode goes
// through a Codec.
package codec

// Codec encodes and decodes values of type T to and from the engine's
// paged log. Implementations external to the core only need to honor this
// contract; the engine works with any of them.
type Codec[T any] interface {
	// Encode writes the encoded form of v into dst starting at offset and
	// returns the number of bytes written. dst is guaranteed to have at
	// least ByteLength(v) bytes available from offset.
	Encode(v T, dst []byte, offset int) (int, error)

	// Decode reconstructs a T from length bytes of src starting at offset.
	Decode(src []byte, offset, length int) (T, error)

	// ByteLength reports how many bytes Encode(v, ...) will write.
	ByteLength(v T) int

	// FixedLength reports a fixed encoded length shared by every value of
	// T, if one exists. When ok is true the engine omits the per-entry
	// length field for this side of the record.
	FixedLength() (n int, ok bool)
}
