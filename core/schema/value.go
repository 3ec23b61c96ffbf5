package schema

import (
	"cmp"
	"reflect"
	"strings"
)

// Value is what a record exposes for one field. Items are normalised so that
// predicates only ever see string, int64, float64 or bool.
type Value struct {
	shape Shape
	items []any
}

// Scalar wraps a single value.
func Scalar(v any) Value {
	return Value{shape: ShapeScalar, items: []any{Normalize(v)}}
}

// Optional wraps a value that may be absent. A nil pointer is absent.
func Optional[T any](p *T) Value {
	if p == nil {
		return Value{shape: ShapeOptional}
	}
	return Value{shape: ShapeOptional, items: []any{Normalize(*p)}}
}

// List wraps a collection of values.
func List[T any](vs []T) Value {
	items := make([]any, len(vs))
	for i, v := range vs {
		items[i] = Normalize(v)
	}
	return Value{shape: ShapeList, items: items}
}

// Shape returns how the value was constructed.
func (v Value) Shape() Shape { return v.shape }

// Items returns the normalised items held by the value.
func (v Value) Items() []any { return v.items }

// Present reports whether the value holds at least one item.
func (v Value) Present() bool { return len(v.items) > 0 }

// Match applies pred with the push-down rules of the value's shape: a scalar
// is tested directly, an absent optional imposes no constraint, and a list
// passes when any element passes.
func (v Value) Match(pred func(any) bool) bool {
	switch v.shape {
	case ShapeOptional:
		if len(v.items) == 0 {
			return true
		}
		return pred(v.items[0])
	case ShapeList:
		for _, item := range v.items {
			if pred(item) {
				return true
			}
		}
		return false
	default:
		if len(v.items) == 0 {
			return false
		}
		return pred(v.items[0])
	}
}

// Normalize converts v to the canonical Go type of its family: any signed or
// unsigned integer becomes int64, any float becomes float64, and named string
// or bool types are reduced to their underlying kind.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, int64, float64, bool:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	case interface{ String() string }:
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.String {
			return val.String()
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

// Compare orders two values of a sortable field. An absent optional sorts
// before any present value. NaN sorts before every number and equals NaN.
func Compare(a, b Value) int {
	ap, bp := a.Present(), b.Present()
	switch {
	case !ap && !bp:
		return 0
	case !ap:
		return -1
	case !bp:
		return 1
	}
	return compareItems(a.items[0], b.items[0])
}

func compareItems(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			// cmp.Compare places NaN before every number and treats NaNs as equal.
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return 0
}
