package handles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/queue"
)

// QueueReceiver is the Receiver[T] adapter backed directly by a
// queue.Queue[T]: it rejects construction across sessions and rejects
// direct Receive while a callback is installed.
type QueueReceiver[T any] struct {
	id connid.ConnectionId
	q  queue.Queue[T]

	callbackMu   sync.Mutex
	withCallback atomic.Bool
	cancel       context.CancelFunc
	done         chan struct{}
}

var _ Receiver[int] = (*QueueReceiver[int])(nil)

// NewQueueReceiver resolves id's backing queue from reg. callerSession must
// match id.Session (empty matches anything) or construction fails with
// connid.ErrCrossSession.
func NewQueueReceiver[T any](reg *queue.Registry, id connid.ConnectionId, callerSession string) (*QueueReceiver[T], error) {
	if id.Session != "" && callerSession != "" && id.Session != callerSession {
		return nil, fmt.Errorf("%w (uid=%q)", connid.ErrCrossSession, id.UID)
	}

	q, err := queue.GetQueue[T](reg, id)
	if err != nil {
		return nil, err
	}

	return &QueueReceiver[T]{id: id, q: q}, nil //nolint:exhaustruct
}

func (r *QueueReceiver[T]) Receive(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	if r.withCallback.Load() {
		return zero, fmt.Errorf("%w (uid=%q)", connid.ErrCallbackConflict, r.id.UID)
	}

	value, err := r.q.Pop(ctx, timeout)
	if errors.Is(err, queue.ErrTimeout) {
		return zero, fmt.Errorf("%w (uid=%q)", connid.ErrTimeoutExpired, r.id.UID)
	}

	return value, err
}

func (r *QueueReceiver[T]) TryReceive(ctx context.Context, timeout time.Duration) (T, bool) {
	return r.q.TryPop(ctx, timeout)
}

// AddCallback installs a worker that polls the queue with
// QueueCallbackQuantum and dispatches f per message until RemoveCallback is
// called, draining in-flight messages per the "enabled OR last-poll-had-a-
// message" loop condition.
func (r *QueueReceiver[T]) AddCallback(f func(T)) error {
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()

	r.removeCallbackLocked()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.withCallback.Store(true)

	go func() {
		defer close(r.done)

		gotMessage := true

		for r.withCallback.Load() || gotMessage {
			value, ok := r.q.TryPop(ctx, QueueCallbackQuantum)
			gotMessage = ok

			if ok {
				f(value)
			}
		}
	}()

	return nil
}

func (r *QueueReceiver[T]) RemoveCallback() {
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()

	r.removeCallbackLocked()
}

func (r *QueueReceiver[T]) removeCallbackLocked() {
	if r.cancel == nil {
		return
	}

	r.withCallback.Store(false)
	<-r.done
	r.cancel()
	r.cancel = nil
	r.done = nil
}

// Subscribe is a no-op for queue-backed receivers; queue connections are
// always send-recv, never pub-sub.
func (r *QueueReceiver[T]) Subscribe(_ string) error { return nil }

// Unsubscribe is a no-op for queue-backed receivers.
func (r *QueueReceiver[T]) Unsubscribe(_ string) error { return nil }
