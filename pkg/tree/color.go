package tree

import (
	"fmt"
	"regexp"
	"strconv"
)

// Color is an RGBA color with 8 bits per channel.
type Color struct {
	R, G, B, A uint8
}

var colorPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}$`)

// ParseColor parses an 8-digit hex string "RRGGBBAA". Digits are
// case-insensitive; nothing else is accepted.
func ParseColor(s string) (Color, error) {
	if !colorPattern.MatchString(s) {
		return Color{}, fmt.Errorf("%w: %q is not an RRGGBBAA color", ErrTypeMismatch, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return ColorFromUint32(uint32(v)), nil
}

// ColorFromUint32 unpacks 0xRRGGBBAA.
func ColorFromUint32(v uint32) Color {
	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}
}

// Uint32 packs the color as 0xRRGGBBAA.
func (c Color) Uint32() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// Hex returns the canonical uppercase "RRGGBBAA" form.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// String implements fmt.Stringer.
func (c Color) String() string { return c.Hex() }
