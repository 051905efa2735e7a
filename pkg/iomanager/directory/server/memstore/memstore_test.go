package memstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eser/iomanager/pkg/iomanager/directory/server"
	"github.com/eser/iomanager/pkg/iomanager/directory/server/memstore"
)

func TestStore_PublishThenQuery(t *testing.T) {
	t.Parallel()

	s := memstore.New(0, 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Publish(t.Context(), []server.Entry{
		{Partition: "p1", UID: "hsi01", DataType: "Data", URI: "tcp://1.2.3.4:9000", Kind: "send_recv", RegisteredAt: time.Now()},
	}))

	entries, err := s.Query(t.Context(), "p1", "", ".*", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hsi01", entries[0].UID)
}

func TestStore_QueryFiltersByPartitionDataTypeAndRegex(t *testing.T) {
	t.Parallel()

	s := memstore.New(0, 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Publish(t.Context(), []server.Entry{
		{Partition: "p1", UID: "hsi01", DataType: "A", URI: "u1", Kind: "send_recv", RegisteredAt: time.Now()},
		{Partition: "p1", UID: "hsi02", DataType: "B", URI: "u2", Kind: "send_recv", RegisteredAt: time.Now()},
		{Partition: "p2", UID: "hsi01", DataType: "A", URI: "u3", Kind: "send_recv", RegisteredAt: time.Now()},
	}))

	entries, err := s.Query(t.Context(), "p1", "", "hsi0[0-9]", "A")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hsi01", entries[0].UID)

	entries, err = s.Query(t.Context(), "p1", "", ".*", "")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_QuerySessionWildcard(t *testing.T) {
	t.Parallel()

	s := memstore.New(0, 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Publish(t.Context(), []server.Entry{
		{Partition: "p1", Session: "", UID: "hsi01", DataType: "A", URI: "u1", Kind: "send_recv", RegisteredAt: time.Now()},
	}))

	entries, err := s.Query(t.Context(), "p1", "session-a", ".*", "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Retract(t *testing.T) {
	t.Parallel()

	s := memstore.New(0, 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Publish(t.Context(), []server.Entry{
		{Partition: "p1", UID: "hsi01", DataType: "A", URI: "u1", Kind: "send_recv", RegisteredAt: time.Now()},
	}))

	require.NoError(t, s.Retract(t.Context(), "p1", []server.UIDDataType{{UID: "hsi01", DataType: "A"}}))

	entries, err := s.Query(t.Context(), "p1", "", ".*", "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_InvalidRegexReturnsError(t *testing.T) {
	t.Parallel()

	s := memstore.New(0, 0)
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.Query(t.Context(), "p1", "", "(unclosed", "")
	require.Error(t, err)
}

func TestStore_TTLSweepEvictsStaleEntries(t *testing.T) {
	t.Parallel()

	s := memstore.New(30*time.Millisecond, 10*time.Millisecond)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Publish(t.Context(), []server.Entry{
		{Partition: "p1", UID: "hsi01", DataType: "A", URI: "u1", Kind: "send_recv", RegisteredAt: time.Now()},
	}))

	require.Eventually(t, func() bool {
		entries, err := s.Query(t.Context(), "p1", "", ".*", "")

		return err == nil && len(entries) == 0
	}, time.Second, 10*time.Millisecond)
}
