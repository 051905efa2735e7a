// Package handles implements the four generic send/receive adapters:
// queue-sender, queue-receiver, network-sender, and network-receiver.
package handles

import (
	"context"
	"time"
)

// FirstSendTimeoutFloor is the minimum timeout a NetworkSender extends its
// very first Send/TrySend call to, so the caller doesn't have to know to
// budget for initial address resolution.
const FirstSendTimeoutFloor = 1 * time.Second

// QueueCallbackQuantum is the poll increment a QueueReceiver's callback
// worker uses between try-receives.
const QueueCallbackQuantum = 1 * time.Millisecond

// NetworkCallbackQuantum is the poll increment a NetworkReceiver's callback
// worker uses between try-receives.
const NetworkCallbackQuantum = 20 * time.Millisecond

// Sender is the typed send contract shared by every sender adapter.
type Sender[T any] interface {
	Send(ctx context.Context, value T, timeout time.Duration) error
	TrySend(ctx context.Context, value T, timeout time.Duration) bool
}

// Receiver is the typed receive contract shared by every receiver adapter.
type Receiver[T any] interface {
	Receive(ctx context.Context, timeout time.Duration) (T, error)
	TryReceive(ctx context.Context, timeout time.Duration) (T, bool)
	AddCallback(f func(T)) error
	RemoveCallback()
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}
