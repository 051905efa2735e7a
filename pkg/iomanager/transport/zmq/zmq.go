// Package zmq implements transport.Plugin on top of ZeroMQ sockets
// (github.com/luxfi/zmq/v4), mirroring how the original DUNE-DAQ iomanager
// used ZeroMQ as its network transport: PUSH/PULL for send-recv, PUB/SUB for
// pub-sub.
package zmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	zmq4 "github.com/luxfi/zmq/v4"

	"github.com/eser/iomanager/pkg/iomanager/transport"
)

var (
	ErrNoConnectionString = errors.New("zmq: connection string is required")
	ErrSocketNotBound     = errors.New("zmq: socket not connected")
)

// Factory implements transport.Factory for the "zmq" plugin name.
type Factory struct{}

// NewFactory constructs a ZeroMQ Factory.
func NewFactory() *Factory { return &Factory{} }

func (f *Factory) NewPlugin(role transport.Role, _ string) (transport.Plugin, error) {
	ctx, cancel := context.WithCancel(context.Background())

	return &Plugin{role: role, ctx: ctx, cancel: cancel}, nil
}

// Register binds the "zmq" plugin name to a transport.MultiFactory.
func Register(mf *transport.MultiFactory) {
	mf.Register("zmq", NewFactory())
}

// Plugin is the ZeroMQ transport.Plugin implementation. A single Plugin
// value owns exactly one socket for the lifetime of its role.
type Plugin struct {
	role   transport.Role
	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	push zmq4.Socket
	pull zmq4.Socket
	pub  zmq4.Socket
	sub  zmq4.Socket
}

var (
	_ transport.Plugin  = (*Plugin)(nil)
	_ transport.Factory = (*Factory)(nil)
)

func (p *Plugin) ConnectForReceives(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	uris := cfg.URIs()
	if len(uris) == 0 {
		return "", ErrNoConnectionString
	}

	switch p.role {
	case transport.RoleSubscriber:
		p.sub = zmq4.NewSub(p.ctx)

		for _, uri := range uris {
			if err := p.sub.Dial(uri); err != nil {
				return "", fmt.Errorf("zmq: sub dial %s: %w", uri, err)
			}
		}

		return uris[0], nil
	default:
		p.pull = zmq4.NewPull(p.ctx)

		if err := p.pull.Listen(uris[0]); err != nil {
			return "", fmt.Errorf("zmq: pull listen %s: %w", uris[0], err)
		}

		return p.pull.Addr().String(), nil
	}
}

func (p *Plugin) ConnectForSends(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	uris := cfg.URIs()
	if len(uris) == 0 {
		return "", ErrNoConnectionString
	}

	switch p.role {
	case transport.RolePublisher:
		p.pub = zmq4.NewPub(p.ctx)

		if err := p.pub.Listen(uris[0]); err != nil {
			return "", fmt.Errorf("zmq: pub listen %s: %w", uris[0], err)
		}

		return p.pub.Addr().String(), nil
	default:
		p.push = zmq4.NewPush(p.ctx)

		if err := p.push.Dial(uris[0]); err != nil {
			return "", fmt.Errorf("zmq: push dial %s: %w", uris[0], err)
		}

		return uris[0], nil
	}
}

func (p *Plugin) Receive(ctx context.Context, timeout time.Duration, _ transport.ReceiveOptions) ([]byte, error) {
	var sock zmq4.Socket

	switch p.role {
	case transport.RoleSubscriber:
		sock = p.sub
	default:
		sock = p.pull
	}

	if sock == nil {
		return nil, ErrSocketNotBound
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msg, err := sock.RecvMsgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrReceiveTimeout, err)
	}

	return msg.Bytes(), nil
}

func (p *Plugin) Send(ctx context.Context, data []byte, timeout time.Duration, topic string, _ transport.SendOptions) error {
	var sock zmq4.Socket

	switch p.role {
	case transport.RolePublisher:
		sock = p.pub
		data = append([]byte(topic+"\x00"), data...)
	default:
		sock = p.push
	}

	if sock == nil {
		return ErrSocketNotBound
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := sock.SendWithContext(ctx, zmq4.NewMsg(data)); err != nil {
		return fmt.Errorf("%w: %w", transport.ErrSendTimeout, err)
	}

	return nil
}

func (p *Plugin) Subscribe(topic string) error {
	if p.sub == nil {
		return transport.ErrNotSubscriber
	}

	return p.sub.SetOption(zmq4.OptionSubscribe, topic)
}

func (p *Plugin) Unsubscribe(topic string) error {
	if p.sub == nil {
		return transport.ErrNotSubscriber
	}

	return p.sub.SetOption(zmq4.OptionUnsubscribe, topic)
}

func (p *Plugin) Close(_ context.Context) error {
	p.cancel()

	for _, sock := range []zmq4.Socket{p.push, p.pull, p.pub, p.sub} {
		if sock != nil {
			_ = sock.Close()
		}
	}

	return nil
}
