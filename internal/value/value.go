// Package value defines the closed set of value kinds the cache stores and
// their byte encodings.
//
// The store keeps raw bytes and never interprets them. Encoding follows the
// Redis client convention: text and binary are written verbatim, integers and
// floats as their decimal text. Reading a value back is therefore always a
// decode step chosen by the caller.
package value

import (
	"strconv"
)

// Kind identifies which member of the union a Value holds.
type Kind int

const (
	// KindText is UTF-8 text.
	KindText Kind = iota
	// KindBytes is an opaque byte string.
	KindBytes
	// KindInt is a signed 64-bit integer.
	KindInt
	// KindFloat is a 64-bit IEEE 754 float.
	KindFloat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Value is one of text, bytes, integer, or float. The zero Value is empty text.
type Value struct {
	kind Kind
	text string
	raw  []byte
	i    int64
	f    float64
}

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bytes returns a binary Value. The slice is copied.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte(nil), b...)}
}

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind reports which member the Value holds.
func (v Value) Kind() Kind { return v.kind }

// Encode returns the bytes written to the store.
func (v Value) Encode() []byte {
	switch v.kind {
	case KindBytes:
		return append([]byte(nil), v.raw...)
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10)
	case KindFloat:
		return strconv.AppendFloat(nil, v.f, 'g', -1, 64)
	default:
		return []byte(v.text)
	}
}

// String renders the Value as it appears in call history: text is quoted,
// bytes are quoted with a b prefix, numbers are bare.
func (v Value) String() string {
	switch v.kind {
	case KindBytes:
		return "b" + strconv.Quote(string(v.raw))
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return strconv.Quote(v.text)
	}
}
