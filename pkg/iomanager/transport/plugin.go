// Package transport defines the narrow interface the core messaging fabric
// uses to talk to concrete wire-transport implementations. The fabric
// never imports a concrete plugin package by name — it resolves one
// through a Factory keyed by role and name, so the plugins under
// transport/inproc, transport/zmq, transport/amqp and transport/rstream
// are reference implementations, not part of the core.
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReceiveTimeout = errors.New("transport: receive timed out")
	ErrSendTimeout    = errors.New("transport: send timed out")
	ErrNotSubscriber  = errors.New("transport: plugin does not support subscribe/unsubscribe")
	ErrUnknownPlugin  = errors.New("transport: no plugin registered for this role/name")
)

// Role is the abstract transport role the network manager asks a Factory to
// resolve to a concrete plugin.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
	RolePublisher
	RoleSubscriber
)

func (r Role) String() string {
	switch r {
	case RoleSender:
		return "sender"
	case RoleReceiver:
		return "receiver"
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}

// ConnectConfig carries either a single connection string or a list of
// them (used for pub-sub, where a subscriber connects to every
// currently-known publisher URI at once).
type ConnectConfig struct {
	ConnectionString  string
	ConnectionStrings []string
}

// URIs returns the config's connection string(s) as a slice, regardless of
// which field was populated.
func (c ConnectConfig) URIs() []string {
	if len(c.ConnectionStrings) > 0 {
		return c.ConnectionStrings
	}

	if c.ConnectionString != "" {
		return []string{c.ConnectionString}
	}

	return nil
}

// ReceiveOptions controls the best-effort knobs receive() supports; AnySize
// and NoThrow mirror the original C++ interface's optional parameters.
type ReceiveOptions struct {
	AnySize bool
	NoThrow bool
}

// SendOptions mirrors Send's optional NoThrow parameter.
type SendOptions struct {
	NoThrow bool
}

// Plugin is the wire-transport contract the core consumes. A single Plugin
// value plays exactly one role for its lifetime (a sender plugin is never
// asked to Subscribe).
type Plugin interface {
	// ConnectForReceives binds a receiving/subscribing endpoint and returns
	// the URI it actually bound to (used to resolve wildcard host/port).
	ConnectForReceives(ctx context.Context, cfg ConnectConfig) (string, error)

	// ConnectForSends connects a sending/publishing endpoint and returns the
	// resolved URI.
	ConnectForSends(ctx context.Context, cfg ConnectConfig) (string, error)

	// Receive blocks for up to timeout waiting for the next message.
	Receive(ctx context.Context, timeout time.Duration, opts ReceiveOptions) ([]byte, error)

	// Send transmits data, tagged with topic (ignored by non-pub-sub
	// plugins), blocking for up to timeout.
	Send(ctx context.Context, data []byte, timeout time.Duration, topic string, opts SendOptions) error

	// Subscribe adds a topic filter. Returns ErrNotSubscriber on
	// send-recv-only plugins.
	Subscribe(topic string) error

	// Unsubscribe removes a topic filter.
	Unsubscribe(topic string) error

	// Close releases the plugin's underlying resources.
	Close(ctx context.Context) error
}

// Factory resolves an abstract Role to a concrete Plugin for the named
// technology (e.g. "zmq", "amqp", "rstream", "inproc").
type Factory interface {
	NewPlugin(role Role, name string) (Plugin, error)
}

// MultiFactory dispatches to one Factory per plugin name, the way
// pkg/ajan/connfx.Registry dispatches to one ConnectionFactory per protocol.
type MultiFactory struct {
	factories map[string]Factory
}

// NewMultiFactory constructs an empty MultiFactory.
func NewMultiFactory() *MultiFactory {
	return &MultiFactory{factories: make(map[string]Factory)}
}

// Register binds name to a Factory.
func (m *MultiFactory) Register(name string, factory Factory) {
	m.factories[name] = factory
}

// NewPlugin resolves (role, name) through the registered Factory.
func (m *MultiFactory) NewPlugin(role Role, name string) (Plugin, error) {
	f, ok := m.factories[name]
	if !ok {
		return nil, ErrUnknownPlugin
	}

	return f.NewPlugin(role, name)
}
