package iomanager

import (
	"fmt"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/handles"
)

// GetSender returns the cached Sender[T] for id, constructing it on first
// use: a queue-backed handles.QueueSender if the queue registry's catalog
// has a matching entry, a handles.NetworkSender otherwise. A second call
// for the same id with a different T fails with ErrTypeMismatch.
func GetSender[T any](m *IOManager, id connid.ConnectionId) (handles.Sender[T], error) {
	resolved, err := resolveId[T](m, id)
	if err != nil {
		return nil, err
	}

	key := cacheKey(resolved)
	elemType := codec.TypeKey[T]()

	m.senderMu.Lock()
	defer m.senderMu.Unlock()

	if entry, ok := m.senders[key]; ok {
		if entry.elemType != elemType {
			return nil, fmt.Errorf("%w (id=%s)", ErrTypeMismatch, resolved)
		}

		sender, ok := entry.handle.(handles.Sender[T])
		if !ok {
			return nil, fmt.Errorf("%w (id=%s)", ErrTypeMismatch, resolved)
		}

		return sender, nil
	}

	var sender handles.Sender[T]

	if m.Queues.HasQueue(resolved.UID, resolved.DataType) {
		qs, err := handles.NewQueueSender[T](m.Queues, resolved)
		if err != nil {
			return nil, err
		}

		sender = qs
	} else {
		sender = handles.NewNetworkSender[T](m.Network, m.Codecs, m.logger, resolved)
	}

	m.senders[key] = handleEntry{handle: sender, elemType: elemType}

	return sender, nil
}
