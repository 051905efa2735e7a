package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/codec/jsoncodec"
)

type onlyInts struct{}

func (onlyInts) Serialize(msg any) ([]byte, error) {
	if _, ok := msg.(*int); ok {
		return []byte("int"), nil
	}

	return nil, codec.ErrNoCodec
}

func (onlyInts) Deserialize(_ []byte, _ any) error { return nil }

func (onlyInts) Supports(msg any) bool {
	_, ok := msg.(*int)

	return ok
}

var _ codec.Codec = onlyInts{}

func TestRegistry_ResolveProbesInOrder(t *testing.T) {
	t.Parallel()

	r := codec.NewRegistry()
	r.Register(onlyInts{})
	r.Register(jsoncodec.New())

	v := 1

	c, err := r.Resolve(&v)
	require.NoError(t, err)
	assert.IsType(t, onlyInts{}, c)

	type other struct{ X int }

	c, err = r.Resolve(&other{})
	require.NoError(t, err)
	assert.IsType(t, &jsoncodec.Codec{}, c)
}

func TestRegistry_ResolveNoMatch(t *testing.T) {
	t.Parallel()

	r := codec.NewRegistry()
	r.Register(onlyInts{})

	_, err := r.Resolve("not an int")
	require.ErrorIs(t, err, codec.ErrNoCodec)
}

func TestSerializable(t *testing.T) {
	t.Parallel()

	r := codec.NewRegistry()
	r.Register(onlyInts{})

	assert.True(t, codec.Serializable[int](r))

	type unregistered struct{}

	assert.False(t, codec.Serializable[unregistered](r))
}

func TestTypeKey_DistinguishesTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, codec.TypeKey[int](), codec.TypeKey[int]())
	assert.NotEqual(t, codec.TypeKey[int](), codec.TypeKey[string]())
}
