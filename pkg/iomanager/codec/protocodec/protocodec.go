// Package protocodec is an optional codec.Codec for payload types that
// implement proto.Message, using google.golang.org/protobuf's wire format
// instead of JSON. Register it ahead of jsoncodec so proto messages prefer
// the more compact binary encoding.
package protocodec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/eser/iomanager/pkg/iomanager/codec"
)

var errNotProtoMessage = errors.New("protocodec: value does not implement proto.Message")

// Codec implements codec.Codec for proto.Message payloads.
type Codec struct{}

// New constructs a protobuf Codec.
func New() *Codec { return &Codec{} }

var _ codec.Codec = (*Codec)(nil)

func (c *Codec) Serialize(msg any) ([]byte, error) {
	pm, ok := msg.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errNotProtoMessage, msg)
	}

	data, err := proto.Marshal(pm)
	if err != nil {
		return nil, fmt.Errorf("protocodec: marshal: %w", err)
	}

	return data, nil
}

func (c *Codec) Deserialize(data []byte, out any) error {
	pm, ok := out.(proto.Message)
	if !ok {
		return fmt.Errorf("%w: %T", errNotProtoMessage, out)
	}

	if err := proto.Unmarshal(data, pm); err != nil {
		return fmt.Errorf("protocodec: unmarshal: %w", err)
	}

	return nil
}

// Supports reports whether msg itself implements proto.Message; a pointer to
// msg is not tried.
func (c *Codec) Supports(msg any) bool {
	_, ok := msg.(proto.Message)

	return ok
}
