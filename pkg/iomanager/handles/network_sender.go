package handles

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/network"
	"github.com/eser/iomanager/pkg/iomanager/transport"
)

// NetworkSender is the Sender[T] adapter backed by a transport.Plugin
// resolved through a network.Manager: lazy plugin resolution, a one-shot
// first-send timeout extension, and drop-on-timeout reconnection.
type NetworkSender[T any] struct {
	id      connid.ConnectionId
	manager *network.Manager
	codecs  *codec.Registry
	logger  *slog.Logger

	mu        sync.Mutex
	plugin    transport.Plugin
	topic     string
	firstSend bool
}

var _ Sender[int] = (*NetworkSender[int])(nil)

// NewNetworkSender constructs a NetworkSender; it tolerates the peer not
// being resolvable yet, matching the original constructor's "log and
// continue" behavior on an initial ConnectionNotFound.
func NewNetworkSender[T any](
	manager *network.Manager,
	codecs *codec.Registry,
	logger *slog.Logger,
	id connid.ConnectionId,
) *NetworkSender[T] {
	if logger == nil {
		logger = slog.Default()
	}

	s := &NetworkSender[T]{id: id, manager: manager, codecs: codecs, logger: logger, firstSend: true} //nolint:exhaustruct

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = s.ensurePlugin(ctx)

	return s
}

func (s *NetworkSender[T]) ensurePlugin(ctx context.Context) error {
	if s.plugin != nil {
		return nil
	}

	plugin, err := s.manager.GetSender(ctx, s.id)
	if err != nil {
		return err
	}

	s.plugin = plugin

	if isPubSub, _ := s.manager.IsPubSubConnection(ctx, s.id); isPubSub {
		s.topic = s.id.DataType
	}

	return nil
}

func (s *NetworkSender[T]) waitForPlugin(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if err := s.ensurePlugin(ctx); err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w (uid=%q)", connid.ErrTimeoutExpired, s.id.UID)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (uid=%q)", connid.ErrTimeoutExpired, s.id.UID)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *NetworkSender[T]) effectiveTimeout(timeout time.Duration) time.Duration {
	if s.firstSend && timeout < FirstSendTimeoutFloor {
		return FirstSendTimeoutFloor
	}

	return timeout
}

func (s *NetworkSender[T]) Send(ctx context.Context, value T, timeout time.Duration) error {
	if !codec.Serializable[T](s.codecs) {
		return fmt.Errorf("%w (uid=%q)", connid.ErrNotSerializable, s.id.UID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	effective := s.effectiveTimeout(timeout)

	if err := s.waitForPlugin(ctx, effective); err != nil {
		return err
	}

	data, err := s.serialize(value)
	if err != nil {
		return err
	}

	err = s.plugin.Send(ctx, data, effective, s.topic, transport.SendOptions{}) //nolint:exhaustruct
	if err != nil {
		s.dropLocked()

		return fmt.Errorf("%w (uid=%q): %w", connid.ErrTimeoutExpired, s.id.UID, err)
	}

	s.firstSend = false

	return nil
}

func (s *NetworkSender[T]) TrySend(ctx context.Context, value T, timeout time.Duration) bool {
	if !codec.Serializable[T](s.codecs) {
		s.logger.Error("not serializable", slog.String("uid", s.id.UID))

		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	effective := s.effectiveTimeout(timeout)

	if err := s.waitForPlugin(ctx, effective); err != nil {
		return false
	}

	data, err := s.serialize(value)
	if err != nil {
		return false
	}

	err = s.plugin.Send(ctx, data, effective, s.topic, transport.SendOptions{NoThrow: true})
	if err != nil {
		s.dropLocked()

		return false
	}

	s.firstSend = false

	return true
}

func (s *NetworkSender[T]) serialize(value T) ([]byte, error) {
	c, err := s.codecs.Resolve(value)
	if err != nil {
		return nil, fmt.Errorf("%w (uid=%q): %w", connid.ErrNotSerializable, s.id.UID, err)
	}

	data, err := c.Serialize(value)
	if err != nil {
		return nil, fmt.Errorf("network sender: serialize (uid=%q): %w", s.id.UID, err)
	}

	return data, nil
}

func (s *NetworkSender[T]) dropLocked() {
	s.plugin = nil
	s.manager.RemoveSender(s.id)
}
