package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// tag identifies the shape stored after it, mirroring the flag-byte wire
// framing used by the pack's RPC binary serializer.
type tag byte

const (
	tagString tag = iota + 1
	tagInt64
	tagFloat64
	tagBool
	tagBytes
	tagJSON
)

// Tagged is the default codec for `any`: a one-byte type tag followed by a
// scalar encoding for the shapes it recognizes, falling back to JSON for
// everything else. It is the codec new engines get when no explicit key or
// value codec is configured.
type Tagged struct{}

func (Tagged) scalarPayload(v any) (tag, []byte, error) {
	switch x := v.(type) {
	case string:
		return tagString, []byte(x), nil
	case int64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(x))
		return tagInt64, b[:], nil
	case int:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(int64(x)))
		return tagInt64, b[:], nil
	case float64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		return tagFloat64, b[:], nil
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return tagBool, []byte{b}, nil
	case []byte:
		return tagBytes, x, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return 0, nil, fmt.Errorf("codec: tagged: json fallback: %w", err)
		}
		return tagJSON, b, nil
	}
}

func (c Tagged) Encode(v any, dst []byte, offset int) (int, error) {
	t, payload, err := c.scalarPayload(v)
	if err != nil {
		return 0, err
	}
	dst[offset] = byte(t)
	n := copy(dst[offset+1:], payload)
	return n + 1, nil
}

// parse splits a tagged payload into its tag byte and body, shared by
// Decode and anyCodec[T]'s type-aware decode path.
func (Tagged) parse(src []byte, offset, length int) (tag, []byte, error) {
	if length < 1 {
		return 0, nil, fmt.Errorf("codec: tagged: empty payload")
	}
	return tag(src[offset]), src[offset+1 : offset+length], nil
}

// decodeScalar turns a tag+body pair into its any-boxed Go value. Every
// tag except tagJSON boxes a fixed concrete type; tagJSON boxes whatever
// encoding/json's default any-destination unmarshal produces (map/slice/
// float64/etc.), since the wire format carries no type information beyond
// the tag byte.
func (Tagged) decodeScalar(t tag, body []byte) (any, error) {
	switch t {
	case tagString:
		return string(body), nil
	case tagInt64:
		return int64(binary.LittleEndian.Uint64(body)), nil
	case tagFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(body)), nil
	case tagBool:
		return body[0] != 0, nil
	case tagBytes:
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case tagJSON:
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("codec: tagged: json fallback decode: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("codec: tagged: unknown tag %d", t)
	}
}

func (c Tagged) Decode(src []byte, offset, length int) (any, error) {
	t, body, err := c.parse(src, offset, length)
	if err != nil {
		return nil, err
	}
	return c.decodeScalar(t, body)
}

func (c Tagged) ByteLength(v any) int {
	_, payload, err := c.scalarPayload(v)
	if err != nil {
		return 0
	}
	return 1 + len(payload)
}

func (Tagged) FixedLength() (int, bool) {
	return 0, false
}
