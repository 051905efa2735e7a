package iomanager

import (
	"reflect"
	"sync"
)

// dataTypes maps a Go type to the data-type string callers have declared
// for it, standing in for the compile-time DataTypeName<T> trait the
// original C++ IOManager relies on (Go generics have no equivalent
// compile-time string per type). Registration is optional: GetSender/
// GetReceiver only enforce the data-type check for types that have
// registered one; unregistered types skip straight to the cache's own
// type-mismatch guard, which caps each ConnectionId at one cached sender
// and one cached receiver regardless of whether a data type was declared.
var dataTypes sync.Map //nolint:gochecknoglobals // process-wide type->name table, mirrors a compile-time trait

// RegisterDataType declares that T's wire data-type name is name, so that a
// later GetSender[T]/GetReceiver[T] call with a ConnectionId whose DataType
// disagrees fails fast with ErrTypeMismatch instead of only being caught by
// the handle cache.
func RegisterDataType[T any](name string) {
	dataTypes.Store(reflect.TypeFor[T](), name)
}

// dataTypeFor returns the data-type name registered for T, if any.
func dataTypeFor[T any]() (string, bool) {
	v, ok := dataTypes.Load(reflect.TypeFor[T]())
	if !ok {
		return "", false
	}

	name, ok := v.(string)

	return name, ok
}
