package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// stringify renders a raw value as text. nil stays nil.
func stringify(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(t, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// toBool parses a raw value, defaulting to false.
func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	default:
		b, err := strconv.ParseBool(strings.TrimSpace(fmt.Sprint(t)))
		if err != nil {
			return false
		}
		return b
	}
}

// toInt converts integral values and numeric strings. Every int field is
// Edm.Int32, so fractions and values outside the int32 range are errors.
func toInt(v any) (int, error) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int32:
		return int(t), nil
	case int64:
		n = t
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		if t < math.MinInt32 || t > math.MaxInt32 {
			return 0, fmt.Errorf("%v is out of int32 range", t)
		}
		return int(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(parsed), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%d is out of int32 range", n)
	}
	return int(n), nil
}

// toTime converts timestamps and RFC 3339 strings. Zero and blank are nil.
func toTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil, nil
		}
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as a date", s)
	default:
		return nil, fmt.Errorf("cannot convert %T to a date", v)
	}
}

// isBlank reports whether a coerced value should be left out of the document.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
