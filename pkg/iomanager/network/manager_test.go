package network_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/network"
	"github.com/eser/iomanager/pkg/iomanager/transport"
	"github.com/eser/iomanager/pkg/iomanager/transport/inproc"
)

func newTestManager() *network.Manager {
	factory := transport.NewDefaultMultiFactory(inproc.Register)

	return network.NewManager(slog.Default(), factory)
}

// uniqueURI gives each test its own inproc broker URI, since inproc's broker
// is process-global and tests run in parallel.
func uniqueURI(t *testing.T, name string) string {
	t.Helper()

	return fmt.Sprintf("inproc://%s-%p", name, t)
}

func TestManager_SendRecvRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	id := connid.NewConnectionId("hsi01", "Data", "")
	uri := uniqueURI(t, "sendrecv")

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	sender, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)

	receiver, err := m.GetReceiver(t.Context(), id)
	require.NoError(t, err)

	require.NoError(t, sender.Send(t.Context(), []byte("hello"), time.Second, "", transport.SendOptions{}))

	data, err := receiver.Receive(t.Context(), time.Second, transport.ReceiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestManager_GetSenderAndGetReceiverCacheInstances(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	id := connid.NewConnectionId("hsi01", "Data", "")
	uri := uniqueURI(t, "cache")

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	first, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)

	second, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestManager_ConfigureTwiceFails(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	require.NoError(t, m.Configure(nil, nil, 0))
	require.ErrorIs(t, m.Configure(nil, nil, 0), connid.ErrAlreadyConfigured)
}

func TestManager_ConfigureDuplicateUIDFails(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	id := connid.NewConnectionId("hsi01", "Data", "")
	uri := uniqueURI(t, "dup")

	err := m.Configure([]connid.ConnectionConfig{
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
	}, nil, 0)
	require.ErrorIs(t, err, connid.ErrNameCollision)
}

func TestManager_GetSenderConnectionNotFound(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	require.NoError(t, m.Configure(nil, nil, 0))

	_, err := m.GetSender(t.Context(), connid.NewConnectionId("missing", "Data", ""))
	require.ErrorIs(t, err, connid.ErrConnectionNotFound)
}

func TestManager_GetSenderAmbiguousMatchFails(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	// Two distinct send-recv connections whose uids both match the query
	// regex "hsi.*".
	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{
			ID:   connid.NewConnectionId("hsi01", "Data", ""),
			URI:  uniqueURI(t, "ambiguous-a"),
			Kind: connid.ConnectionKindSendRecv,
		},
		{
			ID:   connid.NewConnectionId("hsi02", "Data", ""),
			URI:  uniqueURI(t, "ambiguous-b"),
			Kind: connid.ConnectionKindSendRecv,
		},
	}, nil, 0))

	_, err := m.GetSender(t.Context(), connid.NewConnectionId("hsi.*", "Data", ""))
	require.ErrorIs(t, err, connid.ErrNameCollision)
}

func TestManager_PubSubFanout(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	pubID := connid.NewConnectionId("pub01", "Data", "")
	uri := uniqueURI(t, "pubsub")

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: pubID, URI: uri, Kind: connid.ConnectionKindPubSub},
	}, nil, 0))

	receiver, err := m.GetReceiver(t.Context(), pubID)
	require.NoError(t, err)

	sender, err := m.GetSender(t.Context(), pubID)
	require.NoError(t, err)

	require.NoError(t, sender.Send(t.Context(), []byte("tick"), time.Second, "Data", transport.SendOptions{}))

	data, err := receiver.Receive(t.Context(), time.Second, transport.ReceiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "tick", string(data))
}

func TestManager_IsPubSubConnection(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	pubID := connid.NewConnectionId("pub01", "Data", "")
	queueID := connid.NewConnectionId("queue01", "Data", "")

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: pubID, URI: uniqueURI(t, "ispubsub-a"), Kind: connid.ConnectionKindPubSub},
		{ID: queueID, URI: uniqueURI(t, "ispubsub-b"), Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	isPubSub, err := m.IsPubSubConnection(t.Context(), pubID)
	require.NoError(t, err)
	assert.True(t, isPubSub)

	isPubSub, err = m.IsPubSubConnection(t.Context(), queueID)
	require.NoError(t, err)
	assert.False(t, isPubSub)
}

func TestManager_GetDatatypes(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: connid.NewConnectionId("hsi01", "A", ""), URI: uniqueURI(t, "dt-a"), Kind: connid.ConnectionKindSendRecv},
		{ID: connid.NewConnectionId("hsi01", "B", ""), URI: uniqueURI(t, "dt-b"), Kind: connid.ConnectionKindSendRecv},
		{ID: connid.NewConnectionId("hsi02", "C", ""), URI: uniqueURI(t, "dt-c"), Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	assert.ElementsMatch(t, []string{"A", "B"}, m.GetDatatypes("hsi01"))
	assert.ElementsMatch(t, []string{"C"}, m.GetDatatypes("hsi02"))
	assert.Empty(t, m.GetDatatypes("missing"))
}

type stubResolver struct {
	configs []connid.ConnectionConfig
	err     error

	published []connid.ConnectionConfig
}

func (s *stubResolver) Resolve(_ context.Context, _ connid.ConnectionId) ([]connid.ConnectionConfig, error) {
	return s.configs, s.err
}

func (s *stubResolver) Publish(_ context.Context, cfg connid.ConnectionConfig) error {
	s.published = append(s.published, cfg)

	return nil
}

func (s *stubResolver) IsConnected() bool {
	return true
}

func TestManager_ResolverFallbackWhenNotPreconfigured(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	id := connid.NewConnectionId("hsi01", "Data", "")
	uri := uniqueURI(t, "resolver-fallback")

	resolver := &stubResolver{
		configs: []connid.ConnectionConfig{{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv}},
	}

	require.NoError(t, m.Configure(nil, resolver, time.Hour))

	sender, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestManager_ResetTearsDownPlugins(t *testing.T) {
	t.Parallel()

	m := newTestManager()

	id := connid.NewConnectionId("hsi01", "Data", "")
	uri := uniqueURI(t, "reset")

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	_, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)

	m.Reset()

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	_, err = m.GetSender(t.Context(), id)
	require.NoError(t, err)
}

func TestManager_RemoveSenderForcesReconnect(t *testing.T) {
	t.Parallel()

	m := newTestManager()
	t.Cleanup(m.Reset)

	id := connid.NewConnectionId("hsi01", "Data", "")
	uri := uniqueURI(t, "remove-sender")

	require.NoError(t, m.Configure([]connid.ConnectionConfig{
		{ID: id, URI: uri, Kind: connid.ConnectionKindSendRecv},
	}, nil, 0))

	first, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)

	m.RemoveSender(id)

	second, err := m.GetSender(t.Context(), id)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}
