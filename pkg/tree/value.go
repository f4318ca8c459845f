package tree

import (
	"strconv"

	"github.com/plml/oscquery-go/pkg/wire"
)

// Value is a scalar held by a leaf node. The zero Value belongs to no kind
// and is what containers carry.
type Value struct {
	kind  Kind
	i     int64
	f     float64
	s     string
	b     bool
	color Color
}

// IntValue returns an integer value.
func IntValue(v int64) Value { return Value{kind: KindInteger, i: v} }

// FloatValue returns a float value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue returns a string value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// BoolValue returns a boolean value.
func BoolValue(v bool) Value { return Value{kind: KindBoolean, b: v} }

// ColorValue returns a color value.
func ColorValue(v Color) Value { return Value{kind: KindColor, color: v} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload.
func (v Value) Float() float64 { return v.f }

// Text returns the string payload.
func (v Value) Text() string { return v.s }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Color returns the color payload.
func (v Value) Color() Color { return v.color }

// Interface returns the payload as it appears on the wire: int64, float64,
// string, bool, or the hex string of a color. Containers yield nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBoolean:
		return v.b
	case KindColor:
		return v.color.Hex()
	default:
		return nil
	}
}

// Arg returns the payload as a control message argument. Colors travel as
// OSC 'r' arguments rather than hex strings.
func (v Value) Arg() any {
	if v.kind == KindColor {
		return wire.RGBA(v.color.Uint32())
	}
	return v.Interface()
}

// String formats the payload for display.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindColor:
		return v.color.Hex()
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBoolean:
		return v.b == o.b
	case KindColor:
		return v.color == o.color
	default:
		return true
	}
}
