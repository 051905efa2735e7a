// Package codec defines the serializer contract the fabric uses to turn a
// typed payload into bytes on the wire and back: a small ordered list of
// Codec values probed in order, rather than a per-type function map.
package codec

import (
	"errors"
	"reflect"
	"sync"
)

var ErrNoCodec = errors.New("codec: no registered codec supports this type")

// Codec serializes/deserializes a message and reports whether it applies to
// a given value, mirroring SerializerRegistry's per-Datatype
// register_serializer/register_deserializer pair collapsed into one
// interface.
type Codec interface {
	Serialize(msg any) ([]byte, error)
	Deserialize(data []byte, out any) error
	Supports(msg any) bool
}

// Registry holds an ordered list of Codecs, probed via Supports in
// registration order. When more than one Codec reports support for the same
// value (e.g. a proto.Message that's also json.Marshaler), the one registered
// first wins.
type Registry struct {
	mu     sync.RWMutex
	codecs []Codec
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{} //nolint:exhaustruct
}

// Register appends c to the probe order.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs = append(r.codecs, c)
}

// Resolve returns the first registered Codec whose Supports(msg) is true.
func (r *Registry) Resolve(msg any) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.codecs {
		if c.Supports(msg) {
			return c, nil
		}
	}

	return nil, ErrNoCodec
}

// Serializable reports whether T has a registered Codec. A zero value of T
// is used as the probe.
func Serializable[T any](r *Registry) bool {
	var zero T

	_, err := r.Resolve(any(&zero))
	if err == nil {
		return true
	}

	_, err = r.Resolve(any(zero))

	return err == nil
}

// TypeKey returns a stable map key for T, used by callers that want to cache
// codec resolution per concrete Go type rather than probing Supports on
// every call.
func TypeKey[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
