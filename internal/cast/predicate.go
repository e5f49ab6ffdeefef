package cast

import (
	"cmp"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/filtex/internal/schema"
)

// Equal reports whether a and b are the same value once both are cast to
// the scalar type of t.
func Equal(t schema.FieldType, a, b any) bool {
	ca, ok := castScalar(t.Elem(), a)
	if !ok {
		return false
	}
	cb, ok := castScalar(t.Elem(), b)
	if !ok {
		return false
	}
	if ta, ok := ca.(time.Time); ok {
		return ta.Equal(cb.(time.Time))
	}
	return ca == cb
}

// Compare orders a and b under the scalar type of t. ok is false when
// either value does not cast or the type is not ordered.
func Compare(t schema.FieldType, a, b any) (int, bool) {
	elem := t.Elem()
	if !elem.IsOrdered() && elem != schema.TypeString {
		return 0, false
	}
	ca, ok := castScalar(elem, a)
	if !ok {
		return 0, false
	}
	cb, ok := castScalar(elem, b)
	if !ok {
		return 0, false
	}
	switch va := ca.(type) {
	case float64:
		return cmp.Compare(va, cb.(float64)), true
	case string:
		return strings.Compare(va, cb.(string)), true
	case time.Duration:
		return cmp.Compare(va, cb.(time.Duration)), true
	case time.Time:
		return va.Compare(cb.(time.Time)), true
	}
	return 0, false
}

// IsBlank reports whether v is nil, an empty string or an empty array.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	if IsArray(v) {
		return reflect.ValueOf(v).Len() == 0
	}
	return false
}

// Elements returns the items of an array value, or v as a single item.
func Elements(v any) []any {
	if !IsArray(v) {
		if v == nil {
			return nil
		}
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
