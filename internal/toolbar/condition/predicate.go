package condition

import (
	"math"
	"reflect"
)

// Editor is the active document handle handed to predicates. Non-text items
// (image views, settings pages) return an empty grammar; items without a
// backing file return an empty path.
type Editor interface {
	Path() string
	GrammarName() string
	IsModified() bool
}

// Predicate is a function condition. The editor may be nil when no item is
// active. The result is coerced with Truthy.
type Predicate func(ed Editor) (any, error)

// AsPredicate adapts the function shapes accepted in configs.
func AsPredicate(v any) (Predicate, bool) {
	switch fn := v.(type) {
	case Predicate:
		return fn, fn != nil
	case func(Editor) (any, error):
		return Predicate(fn), fn != nil
	case func(Editor) any:
		if fn == nil {
			return nil, false
		}
		return func(ed Editor) (any, error) { return fn(ed), nil }, true
	case func(Editor) bool:
		if fn == nil {
			return nil, false
		}
		return func(ed Editor) (any, error) { return fn(ed), nil }, true
	default:
		return nil, false
	}
}

// Call runs p, converting errors and panics into a *PredicateError, and
// coerces the result to a boolean.
func (p Predicate) Call(ed Editor) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = &PredicateError{Panic: r}
		}
	}()

	v, err := p(ed)
	if err != nil {
		return false, &PredicateError{Err: err}
	}
	return Truthy(v), nil
}

// Truthy coerces a predicate result to a boolean. nil, false, zero numbers,
// NaN, empty strings, nil pointers and empty slices or maps are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}
