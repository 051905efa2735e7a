package jsoncodec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/codec/jsoncodec"
)

type sample struct {
	Name  string
	Count int
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := jsoncodec.New()

	data, err := c.Serialize(sample{Name: "hsi01", Count: 3})
	require.NoError(t, err)

	var out sample

	require.NoError(t, c.Deserialize(data, &out))
	assert.Equal(t, sample{Name: "hsi01", Count: 3}, out)
}

func TestCodec_SupportsEverything(t *testing.T) {
	t.Parallel()

	c := jsoncodec.New()

	assert.True(t, c.Supports(sample{}))
	assert.True(t, c.Supports(42))
	assert.True(t, c.Supports(nil))
}

func TestCodec_SerializeUnsupportedValueErrors(t *testing.T) {
	t.Parallel()

	c := jsoncodec.New()

	_, err := c.Serialize(make(chan int))
	require.Error(t, err)
}

func TestCodec_ImplementsInterface(t *testing.T) {
	t.Parallel()

	var _ codec.Codec = jsoncodec.New()
}
