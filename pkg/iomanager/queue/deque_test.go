package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eser/iomanager/pkg/iomanager/queue"
)

func TestDeque_CapacityAndHints(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](2)

	assert.Equal(t, 2, d.GetCapacity())
	assert.Equal(t, 0, d.GetNumElements())
	assert.True(t, d.CanPush())
	assert.False(t, d.CanPop())

	require.NoError(t, d.Push(t.Context(), 1, time.Second))
	assert.Equal(t, 1, d.GetNumElements())
	assert.True(t, d.CanPop())

	require.NoError(t, d.Push(t.Context(), 2, time.Second))
	assert.False(t, d.CanPush())
}

func TestDeque_FIFOOrder(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](4)

	for i := range 4 {
		require.NoError(t, d.Push(t.Context(), i, time.Second))
	}

	for i := range 4 {
		got, err := d.Pop(t.Context(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
}

func TestDeque_PushTimeoutWhenFull(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](1)

	require.NoError(t, d.Push(t.Context(), 1, time.Second))

	err := d.Push(t.Context(), 2, 20*time.Millisecond)
	require.ErrorIs(t, err, queue.ErrTimeout)
}

func TestDeque_PopTimeoutWhenEmpty(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](1)

	_, err := d.Pop(t.Context(), 20*time.Millisecond)
	require.ErrorIs(t, err, queue.ErrTimeout)
}

func TestDeque_TryPushTryPop(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](1)

	assert.True(t, d.TryPush(t.Context(), 1, time.Second))
	assert.False(t, d.TryPush(t.Context(), 2, 10*time.Millisecond))

	got, ok := d.TryPop(t.Context(), time.Second)
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = d.TryPop(t.Context(), 10*time.Millisecond)
	assert.False(t, ok)
}

func TestDeque_PopUnblocksOnPush(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](1)

	var wg sync.WaitGroup

	wg.Add(1)

	var got int

	var popErr error

	go func() {
		defer wg.Done()

		got, popErr = d.Pop(t.Context(), 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, d.Push(t.Context(), 42, time.Second))

	wg.Wait()

	require.NoError(t, popErr)
	assert.Equal(t, 42, got)
}

func TestDeque_ContextCancellationUnblocksWait(t *testing.T) {
	t.Parallel()

	d := queue.NewDeque[int](1)

	ctx, cancel := context.WithCancel(t.Context())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := d.Pop(ctx, 2*time.Second)
	require.ErrorIs(t, err, queue.ErrTimeout)
}
