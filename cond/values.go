package cond

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Equal reports whether two condition values are deep-equal. Numbers compare
// by value across Go kinds, times by instant, and named string types as their
// underlying string. Strings never equal numbers.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x.Cmp(y) == 0
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.String && rb.Kind() == reflect.String {
		return ra.String() == rb.String()
	}
	if isList(ra) && isList(rb) {
		la, lb := AsList(a), AsList(b)
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two values the way a SQL backend would after implicit
// casts: numbers numerically (numeric strings included), times by instant
// (RFC 3339 strings included), strings lexically, false before true.
// ok is false when either side is nil or the values are not comparable.
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	a, b = unbytes(a), unbytes(b)

	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x.Cmp(y), true
		}
		if y, ok := numericString(b); ok {
			return x.Cmp(y), true
		}
		return 0, false
	}
	if _, ok := number(b); ok {
		c, ok := Compare(b, a)
		return -c, ok
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	if _, ok := b.(time.Time); ok {
		c, ok := Compare(b, a)
		return -c, ok
	}

	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		default:
			return 1, true
		}
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.String && rb.Kind() == reflect.String {
		return strings.Compare(ra.String(), rb.String()), true
	}
	return 0, false
}

// Format renders a value as it appears in a filter expression.
func Format(v any) string {
	switch x := unbytes(v).(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	}
	return fmt.Sprint(v)
}

func unbytes(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func isList(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

// number converts v to an exact value. NaN has none, so it equals nothing
// and orders against nothing.
func number(v any) (*big.Float, bool) {
	if n, ok := v.(json.Number); ok {
		f, _, err := big.ParseFloat(n.String(), 10, 128, big.ToNearestEven)
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return new(big.Float).SetInt64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Float).SetUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		if math.IsNaN(rv.Float()) {
			return nil, false
		}
		return big.NewFloat(rv.Float()), true
	}
	return nil, false
}

func numericString(v any) (*big.Float, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	f, _, err := big.ParseFloat(strings.TrimSpace(s), 10, 128, big.ToNearestEven)
	return f, err == nil
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
