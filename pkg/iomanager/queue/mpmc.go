package queue

import (
	"context"
	"sync/atomic"
	"time"
)

// mpmcCell is one ring slot: a value plus a sequence number used to
// synchronize producers and consumers without ever blocking each other
// (Dmitry Vyukov's bounded MPMC queue algorithm), the same family of
// CAS-loop slot-claiming design hayabusa-cloud-lfq's mpmc.go implements.
type mpmcCell[T any] struct {
	seq   atomic.Uint64
	value T
}

// MPMC is a lock-free multi-producer/multi-consumer bounded ring. Fairness
// across producers (and across consumers) is best-effort: whichever
// goroutine wins the CAS on the head/tail counter claims the next slot, a
// goroutine that loses retries, and there is no total ordering guarantee
// beyond that.
type MPMC[T any] struct {
	cells    []mpmcCell[T]
	mask     uint64
	capacity uint64
	enqueue  atomic.Uint64
	dequeue  atomic.Uint64
}

var _ Queue[int] = (*MPMC[int])(nil)

// NewMPMC constructs an MPMC ring. The ring is rounded up to a power of two
// internally; at most capacity elements are held at once.
func NewMPMC[T any](capacity int) *MPMC[T] {
	if capacity < 1 {
		capacity = 1
	}

	size := nextPowerOfTwo(uint64(capacity)) //nolint:gosec

	q := &MPMC[T]{ //nolint:varnamelen
		cells:    make([]mpmcCell[T], size),
		mask:     size - 1,
		capacity: uint64(capacity), //nolint:gosec
	}

	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i)) //nolint:gosec
	}

	return q
}

func (q *MPMC[T]) GetCapacity() int {
	return int(q.capacity) //nolint:gosec
}

func (q *MPMC[T]) GetNumElements() int {
	enq := q.enqueue.Load()
	deq := q.dequeue.Load()

	if enq < deq {
		return 0
	}

	return int(enq - deq) //nolint:gosec
}

func (q *MPMC[T]) CanPush() bool {
	return q.GetNumElements() < int(q.capacity) //nolint:gosec
}

func (q *MPMC[T]) CanPop() bool {
	return q.GetNumElements() > 0
}

func (q *MPMC[T]) tryEnqueue(value T) bool {
	pos := q.enqueue.Load()

	for {
		cell := &q.cells[pos&q.mask]
		seq := cell.seq.Load()
		diff := int64(seq) - int64(pos) //nolint:gosec

		switch {
		case diff == 0:
			if deq := q.dequeue.Load(); pos >= deq && pos-deq >= q.capacity {
				return false // capacity elements already queued
			}

			if q.enqueue.CompareAndSwap(pos, pos+1) {
				cell.value = value
				cell.seq.Store(pos + 1)

				return true
			}

			pos = q.enqueue.Load()
		case diff < 0:
			return false // ring is full
		default:
			pos = q.enqueue.Load()
		}
	}
}

func (q *MPMC[T]) tryDequeue() (T, bool) {
	var zero T

	pos := q.dequeue.Load()

	for {
		cell := &q.cells[pos&q.mask]
		seq := cell.seq.Load()
		diff := int64(seq) - int64(pos+1) //nolint:gosec

		switch {
		case diff == 0:
			if q.dequeue.CompareAndSwap(pos, pos+1) {
				value := cell.value
				cell.value = zero
				cell.seq.Store(pos + q.mask + 1)

				return value, true
			}

			pos = q.dequeue.Load()
		case diff < 0:
			return zero, false // ring is empty
		default:
			pos = q.dequeue.Load()
		}
	}
}

func (q *MPMC[T]) Push(ctx context.Context, value T, timeout time.Duration) error {
	ok := spinUntil(ctx, timeout, func() bool { return q.tryEnqueue(value) })
	if !ok {
		return ErrTimeout
	}

	return nil
}

func (q *MPMC[T]) Pop(ctx context.Context, timeout time.Duration) (T, error) {
	var result T

	ok := spinUntil(ctx, timeout, func() bool {
		v, got := q.tryDequeue()
		if got {
			result = v
		}

		return got
	})
	if !ok {
		var zero T

		return zero, ErrTimeout
	}

	return result, nil
}

func (q *MPMC[T]) TryPush(ctx context.Context, value T, timeout time.Duration) bool {
	return q.Push(ctx, value, timeout) == nil
}

func (q *MPMC[T]) TryPop(ctx context.Context, timeout time.Duration) (T, bool) {
	value, err := q.Pop(ctx, timeout)

	return value, err == nil
}
