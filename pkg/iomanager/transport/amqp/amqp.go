// Package amqp implements transport.Plugin on top of AMQP 0-9-1
// (github.com/rabbitmq/amqp091-go): a direct exchange per send-recv
// ConnectionId for unicast, a fanout exchange per pub-sub ConnectionId for
// broadcast. Connection/channel lifecycle and the ensureConnection
// reconnect-on-demand pattern are adapted from
// pkg/ajan/connfx/adapter_amqp.go's AMQPAdapter.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eser/iomanager/pkg/iomanager/transport"
)

var (
	ErrNoConnectionString = errors.New("amqp: connection string is required")
	ErrNotConnected       = errors.New("amqp: not connected")
)

// Factory implements transport.Factory for the "amqp" plugin name.
type Factory struct{}

// NewFactory constructs an AMQP Factory.
func NewFactory() *Factory { return &Factory{} }

func (f *Factory) NewPlugin(role transport.Role, _ string) (transport.Plugin, error) {
	return &Plugin{role: role}, nil
}

// Register binds the "amqp" plugin name to a transport.MultiFactory.
func Register(mf *transport.MultiFactory) {
	mf.Register("amqp", NewFactory())
}

// Plugin is the AMQP transport.Plugin implementation.
type Plugin struct {
	role transport.Role

	mu         sync.Mutex
	url        string
	exchange   string
	queueName  string
	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
}

var (
	_ transport.Plugin  = (*Plugin)(nil)
	_ transport.Factory = (*Factory)(nil)
)

// ensureConnection dials lazily and reconnects if the connection was
// closed, mirroring AMQPAdapter.ensureConnection.
func (p *Plugin) ensureConnection() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil && !p.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp: dial %s: %w", p.url, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("amqp: open channel: %w", err)
	}

	p.conn = conn
	p.channel = channel

	return nil
}

func (p *Plugin) exchangeKind() string {
	if p.role == transport.RolePublisher || p.role == transport.RoleSubscriber {
		return "fanout"
	}

	return "direct"
}

func (p *Plugin) ConnectForReceives(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	uris := cfg.URIs()
	if len(uris) == 0 {
		return "", ErrNoConnectionString
	}

	p.url, p.exchange = splitAMQPURI(uris[0])

	if err := p.ensureConnection(); err != nil {
		return "", err
	}

	if err := p.channel.ExchangeDeclare(p.exchange, p.exchangeKind(), false, false, false, false, nil); err != nil {
		return "", fmt.Errorf("amqp: declare exchange %s: %w", p.exchange, err)
	}

	queue, err := p.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("amqp: declare queue: %w", err)
	}

	if err := p.channel.QueueBind(queue.Name, "", p.exchange, false, nil); err != nil {
		return "", fmt.Errorf("amqp: bind queue: %w", err)
	}

	p.queueName = queue.Name

	deliveries, err := p.channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return "", fmt.Errorf("amqp: consume %s: %w", queue.Name, err)
	}

	p.deliveries = deliveries

	return uris[0], nil
}

func (p *Plugin) ConnectForSends(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	uris := cfg.URIs()
	if len(uris) == 0 {
		return "", ErrNoConnectionString
	}

	p.url, p.exchange = splitAMQPURI(uris[0])

	if err := p.ensureConnection(); err != nil {
		return "", err
	}

	if err := p.channel.ExchangeDeclare(p.exchange, p.exchangeKind(), false, false, false, false, nil); err != nil {
		return "", fmt.Errorf("amqp: declare exchange %s: %w", p.exchange, err)
	}

	return uris[0], nil
}

func (p *Plugin) Receive(ctx context.Context, timeout time.Duration, _ transport.ReceiveOptions) ([]byte, error) {
	if p.deliveries == nil {
		return nil, ErrNotConnected
	}

	var timerC <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case d, ok := <-p.deliveries:
		if !ok {
			return nil, fmt.Errorf("amqp: %w", ErrNotConnected)
		}

		return d.Body, nil
	case <-timerC:
		return nil, transport.ErrReceiveTimeout
	case <-ctx.Done():
		return nil, transport.ErrReceiveTimeout
	}
}

func (p *Plugin) Send(ctx context.Context, data []byte, timeout time.Duration, topic string, _ transport.SendOptions) error {
	if err := p.ensureConnection(); err != nil {
		return err
	}

	sendCtx := ctx

	if timeout > 0 {
		var cancel context.CancelFunc

		sendCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := p.channel.PublishWithContext(sendCtx, p.exchange, "", false, false, amqp.Publishing{ //nolint:exhaustruct
		ContentType: "application/octet-stream",
		Body:        data,
		Headers:     amqp.Table{"topic": topic},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", transport.ErrSendTimeout, err)
	}

	return nil
}

func (p *Plugin) Subscribe(_ string) error {
	// Fanout exchanges deliver everything already bound; per-topic filtering
	// isn't meaningful for this plugin's exchange kind.
	return nil
}

func (p *Plugin) Unsubscribe(_ string) error {
	return nil
}

func (p *Plugin) Close(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}

	if p.conn != nil {
		_ = p.conn.Close()
	}

	return nil
}

// splitAMQPURI pulls the logical exchange/queue name out of a connection
// string of the form "amqp://host:port/vhost/exchange-name", falling back to
// "iomanager" when no path segment is present.
func splitAMQPURI(uri string) (url, exchange string) {
	start := 0
	if i := strings.Index(uri, "://"); i >= 0 {
		start = i + len("://")
	}

	for i := len(uri) - 1; i >= start; i-- {
		if uri[i] == '/' {
			name := uri[i+1:]
			if name == "" {
				break
			}

			return uri[:i], name
		}
	}

	return uri, "iomanager"
}
