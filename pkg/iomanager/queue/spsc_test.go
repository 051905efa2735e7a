package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eser/iomanager/pkg/iomanager/queue"
)

func TestSPSC_GetCapacityReportsRequestedSize(t *testing.T) {
	t.Parallel()

	// GetCapacity reports the requested capacity, not the power-of-two
	// buffer the ring is rounded up to internally.
	assert.Equal(t, 3, queue.NewSPSC[int](3).GetCapacity())
	assert.Equal(t, 5, queue.NewSPSC[int](5).GetCapacity())
	assert.Equal(t, 8, queue.NewSPSC[int](8).GetCapacity())
	assert.Equal(t, 1, queue.NewSPSC[int](0).GetCapacity())
}

func TestSPSC_NonPowerOfTwoCapacityStillEnforced(t *testing.T) {
	t.Parallel()

	// Capacity 3 rounds the internal ring up to 4 slots, but CanPush must
	// still flip false after exactly 3 pushes.
	q := queue.NewSPSC[int](3)

	for range 3 {
		require.NoError(t, q.Push(t.Context(), 1, time.Second))
	}

	assert.False(t, q.CanPush())

	err := q.Push(t.Context(), 1, 20*time.Millisecond)
	require.ErrorIs(t, err, queue.ErrTimeout)
}

func TestSPSC_FIFOOrder(t *testing.T) {
	t.Parallel()

	q := queue.NewSPSC[int](8)

	for i := range 8 {
		require.NoError(t, q.Push(t.Context(), i, time.Second))
	}

	assert.Equal(t, 8, q.GetNumElements())

	for i := range 8 {
		got, err := q.Pop(t.Context(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	assert.Equal(t, 0, q.GetNumElements())
}

func TestSPSC_CanPushCanPop(t *testing.T) {
	t.Parallel()

	q := queue.NewSPSC[int](2)

	assert.True(t, q.CanPush())
	assert.False(t, q.CanPop())

	require.NoError(t, q.Push(t.Context(), 1, time.Second))
	require.NoError(t, q.Push(t.Context(), 2, time.Second))

	assert.False(t, q.CanPush())
	assert.True(t, q.CanPop())
}

func TestSPSC_PushTimeoutWhenFull(t *testing.T) {
	t.Parallel()

	q := queue.NewSPSC[int](1)

	require.NoError(t, q.Push(t.Context(), 1, time.Second))

	err := q.Push(t.Context(), 2, 20*time.Millisecond)
	require.ErrorIs(t, err, queue.ErrTimeout)
}

func TestSPSC_PopTimeoutWhenEmpty(t *testing.T) {
	t.Parallel()

	q := queue.NewSPSC[int](1)

	_, err := q.Pop(t.Context(), 20*time.Millisecond)
	require.ErrorIs(t, err, queue.ErrTimeout)
}

func TestSPSC_TryPushTryPop(t *testing.T) {
	t.Parallel()

	q := queue.NewSPSC[int](1)

	assert.True(t, q.TryPush(t.Context(), 1, time.Second))
	assert.False(t, q.TryPush(t.Context(), 2, 10*time.Millisecond))

	got, ok := q.TryPop(t.Context(), time.Second)
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = q.TryPop(t.Context(), 10*time.Millisecond)
	assert.False(t, ok)
}

func TestSPSC_SingleProducerSingleConsumerConcurrent(t *testing.T) {
	t.Parallel()

	const count = 20_000

	q := queue.NewSPSC[int](64)

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := range count {
			require.NoError(t, q.Push(t.Context(), i, 2*time.Second))
		}
	}()

	received := make([]int, 0, count)

	go func() {
		defer wg.Done()

		for range count {
			v, err := q.Pop(t.Context(), 2*time.Second)
			require.NoError(t, err)

			received = append(received, v)
		}
	}()

	wg.Wait()

	require.Len(t, received, count)

	for i, v := range received {
		assert.Equal(t, i, v)
	}
}
