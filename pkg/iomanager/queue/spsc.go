package queue

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// SPSC is a wait-free single-producer/single-consumer ring buffer. Only one
// goroutine may ever call the producer methods (Push/TryPush) and only one
// goroutine may ever call the consumer methods (Pop/TryPop); violating this
// is caller error and corrupts the ring: correctness is only guaranteed for
// the producer/consumer cardinalities the variant name implies.
//
// head is owned by the consumer, tail by the producer; each is published to
// the other side with an atomic store/load, the classic single-writer
// ring-buffer pattern (grounded on the head/tail cache-line-separated
// counters used by hayabusa-cloud-lfq's spsc.go).
type SPSC[T any] struct {
	buf      []T
	capacity uint64
	mask     uint64
	head     atomic.Uint64 // next slot to read, advanced by the consumer
	tail     atomic.Uint64 // next slot to write, advanced by the producer
}

var _ Queue[int] = (*SPSC[int])(nil)

// NewSPSC constructs an SPSC ring. Capacity is rounded up to the next power
// of two internally so index wrapping can use a mask instead of a modulo.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 1 {
		capacity = 1
	}

	size := nextPowerOfTwo(uint64(capacity)) //nolint:gosec

	return &SPSC[T]{
		buf:      make([]T, size),
		capacity: uint64(capacity), //nolint:gosec
		mask:     size - 1,
	}
}

func nextPowerOfTwo(v uint64) uint64 {
	p := uint64(1)
	for p < v {
		p <<= 1
	}

	return p
}

func (q *SPSC[T]) GetCapacity() int {
	return int(q.capacity) //nolint:gosec
}

func (q *SPSC[T]) GetNumElements() int {
	tail := q.tail.Load()
	head := q.head.Load()

	return int(tail - head) //nolint:gosec
}

func (q *SPSC[T]) CanPush() bool {
	return q.tail.Load()-q.head.Load() < q.capacity
}

func (q *SPSC[T]) CanPop() bool {
	return q.tail.Load() > q.head.Load()
}

func (q *SPSC[T]) Push(ctx context.Context, value T, timeout time.Duration) error {
	if !spinUntil(ctx, timeout, q.CanPush) {
		return ErrTimeout
	}

	tail := q.tail.Load()
	q.buf[tail&q.mask] = value
	q.tail.Store(tail + 1)

	return nil
}

func (q *SPSC[T]) Pop(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	if !spinUntil(ctx, timeout, q.CanPop) {
		return zero, ErrTimeout
	}

	head := q.head.Load()
	value := q.buf[head&q.mask]
	q.buf[head&q.mask] = zero
	q.head.Store(head + 1)

	return value, nil
}

func (q *SPSC[T]) TryPush(ctx context.Context, value T, timeout time.Duration) bool {
	return q.Push(ctx, value, timeout) == nil
}

func (q *SPSC[T]) TryPop(ctx context.Context, timeout time.Duration) (T, bool) {
	value, err := q.Pop(ctx, timeout)

	return value, err == nil
}

// spinUntil busy-waits with a CPU-pause hint (runtime.Gosched, the portable
// stand-in for an x86 PAUSE instruction in pure Go) for up to timeout,
// checking ready() between spins. timeout<=0 means a single, non-blocking
// check.
func spinUntil(ctx context.Context, timeout time.Duration, ready func() bool) bool {
	if ready() {
		return true
	}

	if timeout <= 0 {
		return false
	}

	deadline := time.Now().Add(timeout)
	spins := 0

	for time.Now().Before(deadline) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return false
			default:
			}
		}

		if ready() {
			return true
		}

		spins++
		if spins < 1000 {
			runtime.Gosched()
		} else {
			time.Sleep(time.Millisecond)
		}
	}

	return ready()
}
