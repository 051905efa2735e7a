// Package rstream implements transport.Plugin on top of Redis Streams
// (github.com/redis/go-redis/v9): XADD to publish, a per-plugin consumer
// group + XREADGROUP to receive, grounded on
// pkg/ajan/connfx/adapter_redis.go's PublishWithHeaders/ReceiveMessages/
// CreateConsumerGroup methods.
package rstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eser/iomanager/pkg/iomanager/transport"
)

var ErrNoConnectionString = errors.New("rstream: connection string is required")

const readBlockFloor = 50 * time.Millisecond

// Factory implements transport.Factory for the "rstream" plugin name.
type Factory struct{}

// NewFactory constructs a Redis Streams Factory.
func NewFactory() *Factory { return &Factory{} }

func (f *Factory) NewPlugin(role transport.Role, _ string) (transport.Plugin, error) {
	return &Plugin{role: role, consumer: "consumer-" + ulidSuffix()}, nil
}

// Register binds the "rstream" plugin name to a transport.MultiFactory.
func Register(mf *transport.MultiFactory) {
	mf.Register("rstream", NewFactory())
}

// Plugin is the Redis Streams transport.Plugin implementation. Send-recv
// roles share a stream + consumer group; pub-sub roles use one stream per
// topic, fanned out by prefixing the stream name.
type Plugin struct {
	role     transport.Role
	client   *redis.Client
	stream   string
	group    string
	consumer string
	topics   map[string]struct{}
}

var (
	_ transport.Plugin  = (*Plugin)(nil)
	_ transport.Factory = (*Factory)(nil)
)

func (p *Plugin) connect(uris []string) error {
	if len(uris) == 0 {
		return ErrNoConnectionString
	}

	addr := uris[0]
	if _, rest, ok := strings.Cut(addr, "://"); ok {
		addr = rest
	}

	addr, _, _ = strings.Cut(addr, "/")

	p.client = redis.NewClient(&redis.Options{Addr: addr}) //nolint:exhaustruct
	p.stream, p.group = splitStreamURI(uris[0])
	p.topics = make(map[string]struct{})

	return nil
}

func (p *Plugin) ConnectForReceives(ctx context.Context, cfg transport.ConnectConfig) (string, error) {
	if err := p.connect(cfg.URIs()); err != nil {
		return "", err
	}

	err := p.client.XGroupCreateMkStream(ctx, p.stream, p.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return "", fmt.Errorf("rstream: create group %s/%s: %w", p.stream, p.group, err)
	}

	return p.stream, nil
}

func (p *Plugin) ConnectForSends(_ context.Context, cfg transport.ConnectConfig) (string, error) {
	if err := p.connect(cfg.URIs()); err != nil {
		return "", err
	}

	return p.stream, nil
}

func (p *Plugin) Receive(ctx context.Context, timeout time.Duration, _ transport.ReceiveOptions) ([]byte, error) {
	block := timeout
	if block < readBlockFloor {
		block = readBlockFloor
	}

	stream := p.stream
	if p.role == transport.RoleSubscriber && len(p.topics) > 0 {
		// A subscriber with topic filters reads one of its topic streams
		// per call, the first one map iteration yields; its other topic
		// streams are not read in that call.
		for topic := range p.topics {
			stream = p.stream + "." + topic

			break
		}
	}

	args := &redis.XReadGroupArgs{ //nolint:exhaustruct
		Group:    p.group,
		Consumer: p.consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    block,
	}

	result, err := p.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, transport.ErrReceiveTimeout
		}

		return nil, fmt.Errorf("%w: %w", transport.ErrReceiveTimeout, err)
	}

	for _, s := range result {
		for _, entry := range s.Messages {
			_ = p.client.XAck(ctx, stream, p.group, entry.ID)

			data, _ := entry.Values["data"].(string)

			return []byte(data), nil
		}
	}

	return nil, transport.ErrReceiveTimeout
}

func (p *Plugin) Send(ctx context.Context, data []byte, _ time.Duration, topic string, _ transport.SendOptions) error {
	stream := p.stream
	if p.role == transport.RolePublisher && topic != "" {
		stream = p.stream + "." + topic
	}

	args := &redis.XAddArgs{ //nolint:exhaustruct
		Stream: stream,
		Values: map[string]any{"data": string(data)},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("%w: %w", transport.ErrSendTimeout, err)
	}

	return nil
}

func (p *Plugin) Subscribe(topic string) error {
	if p.role != transport.RoleSubscriber {
		return transport.ErrNotSubscriber
	}

	p.topics[topic] = struct{}{}

	return nil
}

func (p *Plugin) Unsubscribe(topic string) error {
	if p.role != transport.RoleSubscriber {
		return transport.ErrNotSubscriber
	}

	delete(p.topics, topic)

	return nil
}

func (p *Plugin) Close(_ context.Context) error {
	if p.client == nil {
		return nil
	}

	if err := p.client.Close(); err != nil {
		return fmt.Errorf("rstream: close: %w", err)
	}

	return nil
}

// splitStreamURI takes the stream name from the path of a
// "[scheme://]host:port/stream-name" connection string and returns it with
// its group name ("<stream>-group"), defaulting the name to "iomanager" when
// absent. connect takes the Redis address (host:port) from the same string.
func splitStreamURI(uri string) (stream, group string) {
	if _, rest, ok := strings.Cut(uri, "://"); ok {
		uri = rest
	}

	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			name := uri[i+1:]
			if name == "" {
				break
			}

			return name, name + "-group"
		}
	}

	return "iomanager", "iomanager-group"
}

var consumerSeq int64 //nolint:gochecknoglobals

func ulidSuffix() string {
	consumerSeq++

	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), consumerSeq)
}
