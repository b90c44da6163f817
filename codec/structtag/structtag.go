// Package structtag implements the optional schema/struct codec layer
// spec.md §1 names as an external collaborator: a reflection-based codec
// that encodes any struct whose fields carry a `rogue:"..."` tag into the
// same codec.Codec[T] contract the engine consumes. The core never imports
// this package; callers opt in by passing a Codec built here as their
// value codec.
package structtag

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sync"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt64
	kindFloat64
	kindBool
	kindBytes
)

type fieldDesc struct {
	index int
	kind  fieldKind
}

// Codec encodes struct type T field-by-field, in declaration order, using
// each field's `rogue:"name"` tag only to opt the field in (the name
// itself is not stored on the wire — field order is the schema).
type Codec[T any] struct {
	once   sync.Once
	fields []fieldDesc
	err    error
}

func (c *Codec[T]) resolve() {
	c.once.Do(func() {
		var zero T
		typ := reflect.TypeOf(zero)
		if typ == nil || typ.Kind() != reflect.Struct {
			c.err = fmt.Errorf("structtag: %T is not a struct", zero)
			return
		}
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if _, ok := f.Tag.Lookup("rogue"); !ok {
				continue
			}
			kind, err := kindOf(f.Type)
			if err != nil {
				c.err = fmt.Errorf("structtag: field %s: %w", f.Name, err)
				return
			}
			c.fields = append(c.fields, fieldDesc{index: i, kind: kind})
		}
	})
}

func kindOf(t reflect.Type) (fieldKind, error) {
	switch t.Kind() {
	case reflect.String:
		return kindString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt64, nil
	case reflect.Float32, reflect.Float64:
		return kindFloat64, nil
	case reflect.Bool:
		return kindBool, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return kindBytes, nil
		}
	}
	return 0, fmt.Errorf("unsupported field type %s", t)
}

func encodedSize(kind fieldKind, v reflect.Value) int {
	switch kind {
	case kindString:
		return 4 + len(v.String())
	case kindBytes:
		return 4 + v.Len()
	case kindInt64, kindFloat64:
		return 8
	case kindBool:
		return 1
	}
	return 0
}

// ByteLength reports the total wire size of v across all tagged fields.
func (c *Codec[T]) ByteLength(v T) int {
	c.resolve()
	if c.err != nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	n := 0
	for _, f := range c.fields {
		n += encodedSize(f.kind, rv.Field(f.index))
	}
	return n
}

// FixedLength never reports a fixed length: field-order schemas may mix
// variable-length strings/bytes with fixed-width scalars, so the engine
// always reads this codec's per-entry length field.
func (c *Codec[T]) FixedLength() (int, bool) {
	return 0, false
}

// Encode writes v's tagged fields, in declaration order, into dst at
// offset.
func (c *Codec[T]) Encode(v T, dst []byte, offset int) (int, error) {
	c.resolve()
	if c.err != nil {
		return 0, c.err
	}
	rv := reflect.ValueOf(v)
	start := offset
	for _, f := range c.fields {
		fv := rv.Field(f.index)
		switch f.kind {
		case kindString:
			s := fv.String()
			binary.LittleEndian.PutUint32(dst[offset:], uint32(len(s)))
			offset += 4
			offset += copy(dst[offset:], s)
		case kindBytes:
			b := fv.Bytes()
			binary.LittleEndian.PutUint32(dst[offset:], uint32(len(b)))
			offset += 4
			offset += copy(dst[offset:], b)
		case kindInt64:
			binary.LittleEndian.PutUint64(dst[offset:], uint64(fv.Int()))
			offset += 8
		case kindFloat64:
			binary.LittleEndian.PutUint64(dst[offset:], math.Float64bits(fv.Float()))
			offset += 8
		case kindBool:
			var b byte
			if fv.Bool() {
				b = 1
			}
			dst[offset] = b
			offset++
		}
	}
	return offset - start, nil
}

// Decode reconstructs a T from length bytes of src at offset.
func (c *Codec[T]) Decode(src []byte, offset, length int) (T, error) {
	c.resolve()
	var out T
	if c.err != nil {
		return out, c.err
	}
	rv := reflect.New(reflect.TypeOf(out)).Elem()
	start := offset
	end := offset + length
	for _, f := range c.fields {
		fv := rv.Field(f.index)
		switch f.kind {
		case kindString:
			n := int(binary.LittleEndian.Uint32(src[offset:]))
			offset += 4
			fv.SetString(string(src[offset : offset+n]))
			offset += n
		case kindBytes:
			n := int(binary.LittleEndian.Uint32(src[offset:]))
			offset += 4
			b := make([]byte, n)
			copy(b, src[offset:offset+n])
			fv.SetBytes(b)
			offset += n
		case kindInt64:
			fv.SetInt(int64(binary.LittleEndian.Uint64(src[offset:])))
			offset += 8
		case kindFloat64:
			fv.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(src[offset:])))
			offset += 8
		case kindBool:
			fv.SetBool(src[offset] != 0)
			offset++
		}
	}
	if offset != end {
		return out, fmt.Errorf("structtag: decoded %d bytes, expected %d", offset-start, length)
	}
	return rv.Interface().(T), nil
}
