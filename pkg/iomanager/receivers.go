package iomanager

import (
	"fmt"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/handles"
)

// GetReceiver returns the cached Receiver[T] for id, constructing it on
// first use: a queue-backed handles.QueueReceiver (rejecting cross-session
// access against the manager's own session) if the queue registry's
// catalog has a matching entry, a handles.NetworkReceiver otherwise.
func GetReceiver[T any](m *IOManager, id connid.ConnectionId) (handles.Receiver[T], error) {
	resolved, err := resolveId[T](m, id)
	if err != nil {
		return nil, err
	}

	key := cacheKey(resolved)
	elemType := codec.TypeKey[T]()

	m.receiverMu.Lock()
	defer m.receiverMu.Unlock()

	if entry, ok := m.receivers[key]; ok {
		if entry.elemType != elemType {
			return nil, fmt.Errorf("%w (id=%s)", ErrTypeMismatch, resolved)
		}

		receiver, ok := entry.handle.(handles.Receiver[T])
		if !ok {
			return nil, fmt.Errorf("%w (id=%s)", ErrTypeMismatch, resolved)
		}

		return receiver, nil
	}

	var receiver handles.Receiver[T]

	if m.Queues.HasQueue(resolved.UID, resolved.DataType) {
		qr, err := handles.NewQueueReceiver[T](m.Queues, resolved, m.Session())
		if err != nil {
			return nil, err
		}

		receiver = qr
	} else {
		receiver = handles.NewNetworkReceiver[T](m.Network, m.Codecs, m.logger, resolved)
	}

	m.receivers[key] = handleEntry{handle: receiver, elemType: elemType}

	return receiver, nil
}

// AddCallback is shorthand for GetReceiver[T](m, id) followed by
// AddCallback(f).
func AddCallback[T any](m *IOManager, id connid.ConnectionId, f func(T)) error {
	receiver, err := GetReceiver[T](m, id)
	if err != nil {
		return err
	}

	return receiver.AddCallback(f)
}

// RemoveCallback is shorthand for GetReceiver[T](m, id) followed by
// RemoveCallback(). Calling it twice is a no-op.
func RemoveCallback[T any](m *IOManager, id connid.ConnectionId) error {
	receiver, err := GetReceiver[T](m, id)
	if err != nil {
		return err
	}

	receiver.RemoveCallback()

	return nil
}
