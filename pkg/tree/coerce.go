package tree

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/plml/oscquery-go/pkg/wire"
)

// Coerce interprets raw as a value of kind k and checks it against r.
// Numeric values are clamped into r; strings must match an enum range
// case-insensitively. Containers hold no value and always fail.
func Coerce(k Kind, r *Range, raw any) (Value, error) {
	switch k {
	case KindInteger:
		if n, ok := toInt64(raw); ok {
			return IntValue(r.clampInt(n)), nil
		}
		f, err := toNumber(raw)
		if err != nil {
			return Value{}, err
		}
		return IntValue(r.clampInt(saturate(math.Round(f)))), nil

	case KindFloat:
		f, err := toNumber(raw)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(r.clampFloat(f)), nil

	case KindString:
		s, err := toString(raw)
		if err != nil {
			return Value{}, err
		}
		if r.IsEnum() {
			canon, ok := r.enumMatch(s)
			if !ok {
				return Value{}, fmt.Errorf("%w: %q not in %v", ErrOutOfRange, s, r.Vals)
			}
			s = canon
		}
		return StringValue(s), nil

	case KindBoolean:
		b, err := toBool(raw)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil

	case KindColor:
		c, err := toColor(raw)
		if err != nil {
			return Value{}, err
		}
		return ColorValue(c), nil

	case KindContainer:
		return Value{}, fmt.Errorf("%w: containers hold no value", ErrAccessDenied)

	default:
		return Value{}, fmt.Errorf("%w: unknown kind %d", ErrMalformed, uint8(k))
	}
}

func toNumber(raw any) (float64, error) {
	if f, ok := toFloat64(raw); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: %v is not a finite number", ErrTypeMismatch, f)
		}
		return f, nil
	}
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as a number", ErrTypeMismatch, raw)
	}
}

// toInt64 converts Go integers without going through float64. uint64 values
// above MaxInt64 saturate.
func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return toInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("%w: cannot use %T as a string", ErrTypeMismatch, raw)
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, v)
		}
		return b, nil
	}
	if f, ok := toFloat64(raw); ok {
		if math.IsNaN(f) {
			return false, fmt.Errorf("%w: NaN", ErrTypeMismatch)
		}
		return f != 0, nil
	}
	return false, fmt.Errorf("%w: cannot use %T as a boolean", ErrTypeMismatch, raw)
}

func toColor(raw any) (Color, error) {
	switch v := raw.(type) {
	case Color:
		return v, nil
	case string:
		return ParseColor(v)
	case wire.RGBA:
		return ColorFromUint32(uint32(v)), nil
	case uint32:
		return ColorFromUint32(v), nil
	case int, int64, uint, uint64:
		n, _ := toInt64(v)
		if n < 0 || n > math.MaxUint32 {
			return Color{}, fmt.Errorf("%w: %v does not fit RRGGBBAA", ErrTypeMismatch, v)
		}
		return ColorFromUint32(uint32(n)), nil
	default:
		return Color{}, fmt.Errorf("%w: cannot use %T as a color", ErrTypeMismatch, raw)
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
