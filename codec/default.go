package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// anyCodec adapts the untyped Tagged codec to a concrete T via runtime
// type assertions, so New can offer a default codec for any K or V
// without requiring the caller to name it.
type anyCodec[T any] struct {
	inner Tagged
}

// Default returns the engine's fallback codec for a type parameter whose
// shape isn't known at compile time: a tagged scalar-or-JSON encoding,
// exactly as spec'd, generalized to any T through the any boxing Go's
// generics already do at the interface boundary.
func Default[T any]() Codec[T] {
	return anyCodec[T]{}
}

func (c anyCodec[T]) Encode(v T, dst []byte, offset int) (int, error) {
	return c.inner.Encode(any(v), dst, offset)
}

// Decode reconstructs T from a tagged payload. Tagged's own scalar tags
// (tagInt64, tagFloat64, ...) always box one canonical Go type regardless
// of which same-shaped type was encoded (e.g. int and int64 both become
// an int64), so a bare type assertion against T fails whenever T isn't
// that exact canonical type — T=int decoding a tagInt64 payload, for
// instance. Decode instead falls back to a reflect.Value.Convert when the
// assertion fails and the kinds are compatible, and for the JSON tag
// decodes straight into a fresh T via json.Unmarshal rather than through
// an intermediate any, so structs/maps/slices round-trip as their own
// shape instead of whatever json.Unmarshal(..., *any) happens to produce.
func (c anyCodec[T]) Decode(src []byte, offset, length int) (T, error) {
	var zero T

	t, body, err := c.inner.parse(src, offset, length)
	if err != nil {
		return zero, err
	}

	targetType := reflect.TypeOf(zero)
	if t == tagJSON && targetType != nil && targetType.Kind() != reflect.Interface {
		out := reflect.New(targetType)
		if err := json.Unmarshal(body, out.Interface()); err != nil {
			return zero, fmt.Errorf("codec: tagged: json fallback decode: %w", err)
		}
		return out.Elem().Interface().(T), nil
	}

	v, err := c.inner.decodeScalar(t, body)
	if err != nil {
		return zero, err
	}
	if tv, ok := v.(T); ok {
		return tv, nil
	}
	if targetType != nil {
		rv := reflect.ValueOf(v)
		if rv.Type().ConvertibleTo(targetType) {
			return rv.Convert(targetType).Interface().(T), nil
		}
	}
	return zero, &typeMismatchError{want: zero, got: v}
}

func (c anyCodec[T]) ByteLength(v T) int {
	return c.inner.ByteLength(any(v))
}

func (anyCodec[T]) FixedLength() (int, bool) {
	return 0, false
}

type typeMismatchError struct {
	want, got any
}

func (e *typeMismatchError) Error() string {
	return "codec: default: decoded value does not match the requested type"
}
