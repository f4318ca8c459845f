package tree

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Range is the valid domain of a leaf. Integer and Float nodes use Min and
// Max (either may be nil for an open bound); String nodes use Vals.
type Range struct {
	Min  *float64
	Max  *float64
	Vals []string
}

// NumericRange returns a closed numeric range.
func NumericRange(min, max float64) *Range {
	return &Range{Min: &min, Max: &max}
}

// EnumRange returns an enumerated string range.
func EnumRange(vals ...string) *Range {
	return &Range{Vals: slices.Clone(vals)}
}

// IsEnum returns true if the range enumerates strings.
func (r *Range) IsEnum() bool {
	return r != nil && len(r.Vals) > 0
}

func (r *Range) empty() bool {
	return r == nil || (r.Min == nil && r.Max == nil && len(r.Vals) == 0)
}

func (r *Range) clone() *Range {
	if r == nil {
		return nil
	}
	c := &Range{Vals: slices.Clone(r.Vals)}
	if r.Min != nil {
		v := *r.Min
		c.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		c.Max = &v
	}
	return c
}

// validFor checks that the range shape suits the kind.
func (r *Range) validFor(k Kind) error {
	if r == nil {
		return nil
	}
	numeric := r.Min != nil || r.Max != nil
	switch k {
	case KindInteger, KindFloat:
		if len(r.Vals) > 0 {
			return fmt.Errorf("%w: enum range on %s node", ErrMalformed, k)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("%w: range min %g above max %g", ErrMalformed, *r.Min, *r.Max)
		}
		if (r.Min != nil && math.IsNaN(*r.Min)) || (r.Max != nil && math.IsNaN(*r.Max)) {
			return fmt.Errorf("%w: NaN range bound", ErrMalformed)
		}
		if k == KindInteger && r.Min != nil && r.Max != nil && math.Ceil(*r.Min) > math.Floor(*r.Max) {
			return fmt.Errorf("%w: no integer in range [%g, %g]", ErrMalformed, *r.Min, *r.Max)
		}
	case KindString:
		if numeric {
			return fmt.Errorf("%w: numeric range on string node", ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: %s node cannot have a range", ErrMalformed, k)
	}
	return nil
}

func (r *Range) clampFloat(v float64) float64 {
	if r == nil {
		return v
	}
	if r.Min != nil && v < *r.Min {
		v = *r.Min
	}
	if r.Max != nil && v > *r.Max {
		v = *r.Max
	}
	return v
}

// clampInt clamps to the integers inside the range.
func (r *Range) clampInt(v int64) int64 {
	if r == nil {
		return v
	}
	if r.Min != nil {
		if lo := saturate(math.Ceil(*r.Min)); v < lo {
			v = lo
		}
	}
	if r.Max != nil {
		if hi := saturate(math.Floor(*r.Max)); v > hi {
			v = hi
		}
	}
	return v
}

// saturate converts an integral float to int64, pinning it to the int64
// bounds.
func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// enumMatch returns the enum's own spelling of s.
func (r *Range) enumMatch(s string) (string, bool) {
	for _, v := range r.Vals {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}
