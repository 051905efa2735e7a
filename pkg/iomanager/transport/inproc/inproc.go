// Package inproc implements transport.Plugin entirely with Go channels, for
// use in unit tests and single-process deployments. Register binds it to the
// "inproc" plugin name, which the network package picks for "inproc://"
// connection strings and for connection strings with no scheme.
package inproc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/transport"
)

var ErrBrokerURIRequired = errors.New("inproc: connection string is required")

// broker is a process-wide registry of named in-memory channels, keyed by
// URI (e.g. "inproc://foo"). Every RoleSender/RoleReceiver pair that
// connects to the same URI shares one unbuffered-ish channel; every
// RolePublisher fans out to every currently-subscribed RoleSubscriber.
type broker struct {
	mu          sync.Mutex
	sendRecv    map[string]chan envelope
	subscribers map[string]map[*subscription]struct{}
}

type envelope struct {
	data  []byte
	topic string
}

type subscription struct {
	ch     chan envelope
	topics map[string]struct{}
	mu     sync.Mutex
}

var globalBroker = &broker{ //nolint:gochecknoglobals
	sendRecv:    make(map[string]chan envelope),
	subscribers: make(map[string]map[*subscription]struct{}),
}

func (b *broker) sendRecvChannel(uri string) chan envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.sendRecv[uri]
	if !ok {
		ch = make(chan envelope, 64)
		b.sendRecv[uri] = ch
	}

	return ch
}

func (b *broker) addSubscriber(uri string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[uri] == nil {
		b.subscribers[uri] = make(map[*subscription]struct{})
	}

	b.subscribers[uri][sub] = struct{}{}
}

func (b *broker) removeSubscriber(uri string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers[uri], sub)
}

func (b *broker) publish(uri string, env envelope) {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subscribers[uri]))
	for sub := range b.subscribers[uri] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		_, wants := sub.topics[env.topic]
		sub.mu.Unlock()

		if !wants {
			continue
		}

		select {
		case sub.ch <- env:
		default: // slow subscriber drops a message rather than blocking the publisher
		}
	}
}

// Plugin is the inproc transport.Plugin implementation.
type Plugin struct {
	role Role
	uri  string

	sendRecvCh chan envelope
	sub        *subscription
}

// Role mirrors transport.Role to avoid an import-only dependency cycle in
// doc comments; the values are assigned from transport.Role at construction.
type Role = transport.Role

// Factory implements transport.Factory for the "inproc" plugin name.
type Factory struct{}

// NewFactory constructs an inproc Factory.
func NewFactory() *Factory { return &Factory{} }

func (f *Factory) NewPlugin(role transport.Role, _ string) (transport.Plugin, error) {
	return &Plugin{role: role}, nil
}

// Register binds the "inproc" plugin name to a transport.MultiFactory.
func Register(mf *transport.MultiFactory) {
	mf.Register("inproc", NewFactory())
}

func (p *Plugin) ConnectForReceives(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	uris := cfg.URIs()
	if len(uris) == 0 {
		return "", ErrBrokerURIRequired
	}

	uri := uris[0]
	p.uri = uri

	switch p.role {
	case transport.RoleSubscriber:
		p.sub = &subscription{ch: make(chan envelope, 256), topics: make(map[string]struct{})}
		globalBroker.addSubscriber(uri, p.sub)
	default:
		p.sendRecvCh = globalBroker.sendRecvChannel(uri)
	}

	return uri, nil
}

func (p *Plugin) ConnectForSends(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	uris := cfg.URIs()
	if len(uris) == 0 {
		return "", ErrBrokerURIRequired
	}

	uri := uris[0]
	p.uri = uri
	p.sendRecvCh = globalBroker.sendRecvChannel(uri)

	return uri, nil
}

func (p *Plugin) Receive(ctx context.Context, timeout time.Duration, _ transport.ReceiveOptions) ([]byte, error) {
	var src <-chan envelope

	switch p.role {
	case transport.RoleSubscriber:
		src = p.sub.ch
	default:
		src = p.sendRecvCh
	}

	if timeout <= 0 {
		select {
		case env := <-src:
			return env.data, nil
		default:
			return nil, transport.ErrReceiveTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env := <-src:
		return env.data, nil
	case <-timer.C:
		return nil, transport.ErrReceiveTimeout
	case <-ctx.Done():
		return nil, transport.ErrReceiveTimeout
	}
}

func (p *Plugin) Send(ctx context.Context, data []byte, timeout time.Duration, topic string, _ transport.SendOptions) error {
	env := envelope{data: data, topic: topic}

	if p.role == transport.RolePublisher {
		globalBroker.publish(p.uri, env)

		return nil
	}

	if timeout <= 0 {
		select {
		case p.sendRecvCh <- env:
			return nil
		default:
			return transport.ErrSendTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.sendRecvCh <- env:
		return nil
	case <-timer.C:
		return transport.ErrSendTimeout
	case <-ctx.Done():
		return transport.ErrSendTimeout
	}
}

func (p *Plugin) Subscribe(topic string) error {
	if p.sub == nil {
		return transport.ErrNotSubscriber
	}

	p.sub.mu.Lock()
	p.sub.topics[topic] = struct{}{}
	p.sub.mu.Unlock()

	return nil
}

func (p *Plugin) Unsubscribe(topic string) error {
	if p.sub == nil {
		return transport.ErrNotSubscriber
	}

	p.sub.mu.Lock()
	delete(p.sub.topics, topic)
	p.sub.mu.Unlock()

	return nil
}

func (p *Plugin) Close(_ context.Context) error {
	if p.sub != nil {
		globalBroker.removeSubscriber(p.uri, p.sub)
	}

	return nil
}

var (
	_ transport.Plugin  = (*Plugin)(nil)
	_ transport.Factory = (*Factory)(nil)
)
