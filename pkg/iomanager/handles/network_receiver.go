package handles

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/network"
	"github.com/eser/iomanager/pkg/iomanager/transport"
)

// NetworkReceiver is the Receiver[T] adapter backed by a transport.Plugin
// resolved through a network.Manager: lazy plugin resolution retried in
// small increments up to the caller's timeout, and a drain-on-remove
// callback worker.
type NetworkReceiver[T any] struct {
	id      connid.ConnectionId
	manager *network.Manager
	codecs  *codec.Registry
	logger  *slog.Logger

	receiveMu sync.Mutex
	plugin    transport.Plugin

	callbackMu   sync.Mutex
	withCallback atomic.Bool
	cancel       context.CancelFunc
	done         chan struct{}
}

var _ Receiver[int] = (*NetworkReceiver[int])(nil)

// NewNetworkReceiver constructs a NetworkReceiver, making one best-effort
// attempt (1 second budget) to resolve the backing plugin up front.
func NewNetworkReceiver[T any](
	manager *network.Manager,
	codecs *codec.Registry,
	logger *slog.Logger,
	id connid.ConnectionId,
) *NetworkReceiver[T] {
	if logger == nil {
		logger = slog.Default()
	}

	r := &NetworkReceiver[T]{id: id, manager: manager, codecs: codecs, logger: logger} //nolint:exhaustruct

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = r.ensurePlugin(ctx, time.Second)

	return r
}

func (r *NetworkReceiver[T]) ensurePlugin(ctx context.Context, timeout time.Duration) error {
	if r.plugin != nil {
		return nil
	}

	deadline := time.Now().Add(timeout)

	for {
		plugin, err := r.manager.GetReceiver(ctx, r.id)
		if err == nil {
			r.plugin = plugin

			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w (uid=%q): %w", connid.ErrTimeoutExpired, r.id.UID, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (uid=%q)", connid.ErrTimeoutExpired, r.id.UID)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (r *NetworkReceiver[T]) Receive(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	if !codec.Serializable[T](r.codecs) {
		return zero, fmt.Errorf("%w (uid=%q)", connid.ErrNotSerializable, r.id.UID)
	}

	r.receiveMu.Lock()
	defer r.receiveMu.Unlock()

	if err := r.ensurePlugin(ctx, timeout); err != nil {
		return zero, err
	}

	data, err := r.plugin.Receive(ctx, timeout, transport.ReceiveOptions{}) //nolint:exhaustruct
	if err != nil {
		return zero, fmt.Errorf("%w (uid=%q): %w", connid.ErrTimeoutExpired, r.id.UID, err)
	}

	return r.deserialize(data)
}

func (r *NetworkReceiver[T]) TryReceive(ctx context.Context, timeout time.Duration) (T, bool) {
	var zero T

	if !codec.Serializable[T](r.codecs) {
		r.logger.Error("not serializable", slog.String("uid", r.id.UID))

		return zero, false
	}

	r.receiveMu.Lock()
	defer r.receiveMu.Unlock()

	if err := r.ensurePlugin(ctx, timeout); err != nil {
		return zero, false
	}

	data, err := r.plugin.Receive(ctx, timeout, transport.ReceiveOptions{AnySize: true, NoThrow: true})
	if err != nil || len(data) == 0 {
		return zero, false
	}

	value, err := r.deserialize(data)
	if err != nil {
		return zero, false
	}

	return value, true
}

func (r *NetworkReceiver[T]) deserialize(data []byte) (T, error) {
	var out T

	c, err := r.codecs.Resolve(out)
	if err != nil {
		return out, fmt.Errorf("%w (uid=%q): %w", connid.ErrNotSerializable, r.id.UID, err)
	}

	if err := c.Deserialize(data, &out); err != nil {
		return out, fmt.Errorf("network receiver: deserialize (uid=%q): %w", r.id.UID, err)
	}

	return out, nil
}

// AddCallback installs a worker that polls with NetworkCallbackQuantum and
// dispatches f per message, draining in-flight messages on RemoveCallback.
func (r *NetworkReceiver[T]) AddCallback(f func(T)) error {
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
			value, ok := r.TryReceive(ctx, NetworkCallbackQuantum)
			gotMessage = ok

			if ok {
				f(value)
			}
		}
	}()

	return nil
}

func (r *NetworkReceiver[T]) RemoveCallback() {
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()

	r.removeCallbackLocked()
}

func (r *NetworkReceiver[T]) removeCallbackLocked() {
	if r.cancel == nil {
		return
	}

	r.withCallback.Store(false)
	<-r.done
	r.cancel()
	r.cancel = nil
	r.done = nil
}

// Subscribe adds a topic filter if id resolves to a pub-sub connection; it
// is a silent no-op for send-recv connections.
func (r *NetworkReceiver[T]) Subscribe(topic string) error {
	r.receiveMu.Lock()
	defer r.receiveMu.Unlock()

	ctx := context.Background()

	isPubSub, err := r.manager.IsPubSubConnection(ctx, r.id)
	if err != nil || !isPubSub || r.plugin == nil {
		return nil
	}

	if err := r.plugin.Subscribe(topic); err != nil {
		return fmt.Errorf("network receiver: subscribe (uid=%q): %w", r.id.UID, err)
	}

	return nil
}

func (r *NetworkReceiver[T]) Unsubscribe(topic string) error {
	r.receiveMu.Lock()
	defer r.receiveMu.Unlock()

	ctx := context.Background()

	isPubSub, err := r.manager.IsPubSubConnection(ctx, r.id)
	if err != nil || !isPubSub || r.plugin == nil {
		return nil
	}

	if err := r.plugin.Unsubscribe(topic); err != nil {
		return fmt.Errorf("network receiver: unsubscribe (uid=%q): %w", r.id.UID, err)
	}

	return nil
}
