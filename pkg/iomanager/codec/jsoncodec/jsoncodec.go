// Package jsoncodec is the default codec.Codec, wrapping encoding/json. It
// supports every value (any type marshals or fails at call time), so it
// should be registered last in a codec.Registry — a fallback, not a filter.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"github.com/eser/iomanager/pkg/iomanager/codec"
)

// Codec implements codec.Codec on top of encoding/json.
type Codec struct{}

// New constructs a json Codec.
func New() *Codec { return &Codec{} }

var _ codec.Codec = (*Codec)(nil)

func (c *Codec) Serialize(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: marshal: %w", err)
	}

	return data, nil
}

func (c *Codec) Deserialize(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("jsoncodec: unmarshal: %w", err)
	}

	return nil
}

// Supports always reports true; json.Marshal accepts any Go value.
func (c *Codec) Supports(_ any) bool {
	return true
}
