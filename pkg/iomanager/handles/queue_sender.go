package handles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/queue"
)

// QueueSender is the Sender[T] adapter backed directly by a queue.Queue[T].
type QueueSender[T any] struct {
	id connid.ConnectionId
	q  queue.Queue[T]
}

var _ Sender[int] = (*QueueSender[int])(nil)

// NewQueueSender resolves id's backing queue from reg and wraps it.
func NewQueueSender[T any](reg *queue.Registry, id connid.ConnectionId) (*QueueSender[T], error) {
	q, err := queue.GetQueue[T](reg, id)
	if err != nil {
		return nil, err
	}

	return &QueueSender[T]{id: id, q: q}, nil
}

func (s *QueueSender[T]) Send(ctx context.Context, value T, timeout time.Duration) error {
	err := s.q.Push(ctx, value, timeout)
	if errors.Is(err, queue.ErrTimeout) {
		return fmt.Errorf("%w (uid=%q)", connid.ErrTimeoutExpired, s.id.UID)
	}

	return err
}

func (s *QueueSender[T]) TrySend(ctx context.Context, value T, timeout time.Duration) bool {
	return s.q.TryPush(ctx, value, timeout)
}
