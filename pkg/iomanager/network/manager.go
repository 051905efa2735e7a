// Package network implements the singleton-shaped resolver that turns a
// connid.ConnectionId into a live transport.Plugin: preconfigured-connection
// matching, wildcard URI rewrite after connect, and a background subscriber
// refresh loop.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/transport"
)

// Resolver is the directory-client contract the manager consults after
// exhausting its preconfigured connection list. A Manager with no Resolver
// only ever sees preconfigured connections, matching single-process
// deployments.
type Resolver interface {
	Resolve(ctx context.Context, id connid.ConnectionId) ([]connid.ConnectionConfig, error)
	Publish(ctx context.Context, cfg connid.ConnectionConfig) error

	// IsConnected reports whether the resolver's last publish tick reached
	// the directory server. The manager keeps retrying an empty directory
	// response while this reports true, and stops retrying as soon as it
	// reports false.
	IsConnected() bool
}

// Manager is the process-wide registry of live sender, receiver, and
// subscriber plugins, plus the preconfigured-connections table they
// resolve against.
type Manager struct {
	logger  *slog.Logger
	factory *transport.MultiFactory

	mu            sync.RWMutex
	preconfigured []connid.ConnectionConfig
	resolver      Resolver
	configured    bool

	refreshInterval time.Duration
	refreshCancel   context.CancelFunc
	refreshDone     chan struct{}

	receiverMu      sync.Mutex
	receiverPlugins map[string]transport.Plugin

	senderMu      sync.Mutex
	senderPlugins map[string]transport.Plugin

	subscriberMu      sync.Mutex
	subscriberPlugins map[string]subscriberEntry
}

type subscriberEntry struct {
	id     connid.ConnectionId
	plugin transport.Plugin
}

// NewManager constructs an unconfigured Manager bound to factory, the
// transport.Factory consulted for every plugin name the manager needs to
// instantiate (e.g. "inproc", "zmq", "amqp", "rstream").
func NewManager(logger *slog.Logger, factory *transport.MultiFactory) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		logger:            logger,
		factory:           factory,
		receiverPlugins:   make(map[string]transport.Plugin),
		senderPlugins:     make(map[string]transport.Plugin),
		subscriberPlugins: make(map[string]subscriberEntry),
	} //nolint:exhaustruct
}

// Configure loads the static connection list and, if resolver is non-nil,
// starts the subscriber refresh loop at refreshInterval. A second call
// without Reset fails with connid.ErrAlreadyConfigured.
func (m *Manager) Configure(
	connections []connid.ConnectionConfig,
	resolver Resolver,
	refreshInterval time.Duration,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configured {
		return connid.ErrAlreadyConfigured
	}

	seen := make(map[string]struct{}, len(connections))

	for _, conn := range connections {
		key := conn.ID.CacheKey()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w (uid=%q)", connid.ErrNameCollision, conn.ID.UID)
		}

		seen[key] = struct{}{}
	}

	m.preconfigured = connections
	m.resolver = resolver
	m.refreshInterval = refreshInterval
	m.configured = true

	if resolver != nil {
		m.startSubscriberRefresh()
	}

	return nil
}

// Reset tears down every live plugin and clears configuration.
func (m *Manager) Reset() {
	m.mu.Lock()
	if m.refreshCancel != nil {
		m.refreshCancel()
		<-m.refreshDone
		m.refreshCancel = nil
	}
	m.preconfigured = nil
	m.resolver = nil
	m.configured = false
	m.mu.Unlock()

	ctx := context.Background()

	m.subscriberMu.Lock()
	for _, entry := range m.subscriberPlugins {
		_ = entry.plugin.Close(ctx)
	}
	m.subscriberPlugins = make(map[string]subscriberEntry)
	m.subscriberMu.Unlock()

	m.senderMu.Lock()
	for _, p := range m.senderPlugins {
		_ = p.Close(ctx)
	}
	m.senderPlugins = make(map[string]transport.Plugin)
	m.senderMu.Unlock()

	m.receiverMu.Lock()
	for _, p := range m.receiverPlugins {
		_ = p.Close(ctx)
	}
	m.receiverPlugins = make(map[string]transport.Plugin)
	m.receiverMu.Unlock()
}

// GetPreconfiguredConnections returns every preconfigured entry matching id.
func (m *Manager) GetPreconfiguredConnections(id connid.ConnectionId) []connid.ConnectionConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []connid.ConnectionConfig

	for _, conn := range m.preconfigured {
		if ok, err := id.Matches(conn.ID); err == nil && ok {
			out = append(out, conn)
		}
	}

	return out
}

// directoryRetryWindow bounds how long GetConnections keeps retrying a
// directory lookup that comes back transiently empty.
const directoryRetryWindow = time.Second

// GetConnections resolves id against the preconfigured list and, if a
// Resolver is configured, the connectivity directory. When restrictSingle
// is set, more than one match from either source is a name collision.
// A directory response that comes back empty is retried for up to one
// second while the resolver reports itself connected (a reachable server
// with a momentarily stale view); once the resolver reports itself
// disconnected, or the window expires, the preconfigured matches (if any)
// are used as-is.
func (m *Manager) GetConnections(
	ctx context.Context,
	id connid.ConnectionId,
	restrictSingle bool,
) ([]connid.ConnectionConfig, error) {
	conns := m.GetPreconfiguredConnections(id)

	if restrictSingle && len(conns) > 1 {
		return nil, fmt.Errorf("%w (uid=%q)", connid.ErrNameCollision, id.UID)
	}

	m.mu.RLock()
	resolver := m.resolver
	m.mu.RUnlock()

	if resolver != nil {
		resolved, err := m.resolveWithRetry(ctx, resolver, id)
		if err == nil && len(resolved) > 0 {
			if restrictSingle && len(resolved) > 1 {
				return nil, fmt.Errorf("%w (uid=%q)", connid.ErrNameCollision, id.UID)
			}

			conns = resolved
		}
	}

	if len(conns) == 0 {
		return nil, fmt.Errorf("%w (uid=%q, data_type=%q)", connid.ErrConnectionNotFound, id.UID, id.DataType)
	}

	return conns, nil
}

// resolveWithRetry retries resolver.Resolve for up to directoryRetryWindow
// while the directory keeps reporting itself reachable (connected) but
// empty, since that's most often a registration that hasn't propagated
// yet. A disconnected resolver's failure is treated as hard rather than
// transient and is not retried.
func (m *Manager) resolveWithRetry(
	ctx context.Context,
	resolver Resolver,
	id connid.ConnectionId,
) ([]connid.ConnectionConfig, error) {
	deadline := time.Now().Add(directoryRetryWindow)

	var (
		resolved []connid.ConnectionConfig
		err      error
	)

	for {
		resolved, err = resolver.Resolve(ctx, id)
		if err == nil && len(resolved) > 0 {
			return resolved, nil
		}

		if !resolver.IsConnected() || time.Now().After(deadline) {
			return resolved, err
		}

		select {
		case <-ctx.Done():
			return resolved, err
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// GetDatatypes returns every data type uid is preconfigured for.
func (m *Manager) GetDatatypes(uid string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})

	var out []string

	for _, conn := range m.preconfigured {
		if conn.ID.UID != uid {
			continue
		}

		if _, ok := seen[conn.ID.DataType]; ok {
			continue
		}

		seen[conn.ID.DataType] = struct{}{}

		out = append(out, conn.ID.DataType)
	}

	return out
}

// IsPubSubConnection reports whether id resolves to a pub-sub connection.
func (m *Manager) IsPubSubConnection(ctx context.Context, id connid.ConnectionId) (bool, error) {
	conns, err := m.GetConnections(ctx, id, false)
	if err != nil {
		return false, err
	}

	return conns[0].Kind == connid.ConnectionKindPubSub, nil
}

// GetReceiver returns the cached receiver/subscriber plugin for id,
// creating it on first use.
func (m *Manager) GetReceiver(ctx context.Context, id connid.ConnectionId) (transport.Plugin, error) {
	key := id.CacheKey()

	m.receiverMu.Lock()
	defer m.receiverMu.Unlock()

	if p, ok := m.receiverPlugins[key]; ok {
		return p, nil
	}

	conns, err := m.GetConnections(ctx, id, false)
	if err != nil {
		return nil, err
	}

	plugin, err := m.createReceiver(ctx, conns, id)
	if err != nil {
		return nil, err
	}

	m.receiverPlugins[key] = plugin

	return plugin, nil
}

// GetSender returns the cached sender/publisher plugin for id, creating it
// on first use.
func (m *Manager) GetSender(ctx context.Context, id connid.ConnectionId) (transport.Plugin, error) {
	key := id.CacheKey()

	m.senderMu.Lock()
	defer m.senderMu.Unlock()

	if p, ok := m.senderPlugins[key]; ok {
		return p, nil
	}

	conns, err := m.GetConnections(ctx, id, true)
	if err != nil {
		return nil, err
	}

	plugin, err := m.createSender(ctx, conns[0])
	if err != nil {
		return nil, err
	}

	m.senderPlugins[key] = plugin

	return plugin, nil
}

// RemoveSender drops the cached sender for id, forcing the next GetSender
// to recreate and reconnect it.
func (m *Manager) RemoveSender(id connid.ConnectionId) {
	key := id.CacheKey()

	m.senderMu.Lock()
	defer m.senderMu.Unlock()

	if p, ok := m.senderPlugins[key]; ok {
		_ = p.Close(context.Background())
		delete(m.senderPlugins, key)
	}
}

func (m *Manager) createReceiver(
	ctx context.Context,
	conns []connid.ConnectionConfig,
	id connid.ConnectionId,
) (transport.Plugin, error) {
	isPubSub := conns[0].Kind == connid.ConnectionKindPubSub
	if len(conns) > 1 && !isPubSub {
		return nil, fmt.Errorf("%w: send-recv receiver must resolve to a single connection", connid.ErrNameCollision)
	}

	role := transport.RoleReceiver
	if isPubSub {
		role = transport.RoleSubscriber
	}

	uris := make([]string, 0, len(conns))

	for _, conn := range conns {
		if isPubSub && connid.HasWildcard(conn.URI) {
			continue
		}

		uris = append(uris, conn.URI)
	}

	if isPubSub && len(uris) == 0 {
		return nil, fmt.Errorf("%w (uid=%q): every matching peer still has an unresolved wildcard URI", connid.ErrNotReady, id.UID)
	}

	name := pluginNameForURI(conns[0].URI)

	plugin, err := m.factory.NewPlugin(role, name)
	if err != nil {
		return nil, fmt.Errorf("network: create receiver plugin %q: %w", name, err)
	}

	cfg := transport.ConnectConfig{ConnectionStrings: uris} //nolint:exhaustruct

	newURI, err := plugin.ConnectForReceives(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("network: connect receiver %q: %w", id.UID, err)
	}

	resolvedURI := rewriteWildcard(conns[0].URI, newURI)

	if isPubSub {
		if err := plugin.Subscribe(conns[0].ID.DataType); err != nil {
			return nil, fmt.Errorf("network: subscribe %q: %w", conns[0].ID.DataType, err)
		}

		m.subscriberMu.Lock()
		m.subscriberPlugins[id.CacheKey()] = subscriberEntry{id: id, plugin: plugin}
		m.subscriberMu.Unlock()
	} else if m.resolverSet() {
		published := conns[0]
		published.URI = resolvedURI

		m.publishIfResolver(ctx, published)
	}

	m.logger.Debug("network receiver created",
		slog.String("uid", id.UID), slog.String("plugin", name), slog.Bool("pubsub", isPubSub))

	return plugin, nil
}

func (m *Manager) createSender(ctx context.Context, conn connid.ConnectionConfig) (transport.Plugin, error) {
	isPubSub := conn.Kind == connid.ConnectionKindPubSub

	if !isPubSub && connid.HasWildcard(conn.URI) {
		return nil, fmt.Errorf("%w (uid=%q)", connid.ErrNotReady, conn.ID.UID)
	}

	role := transport.RoleSender
	if isPubSub {
		role = transport.RolePublisher
	}

	name := pluginNameForURI(conn.URI)

	plugin, err := m.factory.NewPlugin(role, name)
	if err != nil {
		return nil, fmt.Errorf("network: create sender plugin %q: %w", name, err)
	}

	newURI, err := plugin.ConnectForSends(ctx, transport.ConnectConfig{ConnectionString: conn.URI}) //nolint:exhaustruct
	if err != nil {
		return nil, fmt.Errorf("network: connect sender %q: %w", conn.ID.UID, err)
	}

	resolvedURI := rewriteWildcard(conn.URI, newURI)

	if isPubSub {
		published := conn
		published.URI = resolvedURI

		m.publishIfResolver(ctx, published)
	}

	m.logger.Debug("network sender created",
		slog.String("uid", conn.ID.UID), slog.String("plugin", name), slog.Bool("pubsub", isPubSub))

	return plugin, nil
}

func (m *Manager) resolverSet() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.resolver != nil
}

func (m *Manager) publishIfResolver(ctx context.Context, cfg connid.ConnectionConfig) {
	m.mu.RLock()
	resolver := m.resolver
	m.mu.RUnlock()

	if resolver == nil {
		return
	}

	if err := resolver.Publish(ctx, cfg); err != nil {
		m.logger.Warn("directory publish failed", slog.String("uid", cfg.ID.UID), slog.Any("error", err))
	}
}

func (m *Manager) startSubscriberRefresh() {
	ctx, cancel := context.WithCancel(context.Background())
	m.refreshCancel = cancel
	m.refreshDone = make(chan struct{})

	interval := m.refreshInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(m.refreshDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refreshSubscribers(ctx)
			}
		}
	}()
}

func (m *Manager) refreshSubscribers(ctx context.Context) {
	m.subscriberMu.Lock()
	entries := make([]subscriberEntry, 0, len(m.subscriberPlugins))
	for _, e := range m.subscriberPlugins {
		entries = append(entries, e)
	}
	m.subscriberMu.Unlock()

	for _, entry := range entries {
		conns, err := m.GetConnections(ctx, entry.id, false)
		if err != nil {
			continue
		}

		uris := make([]string, 0, len(conns))
		for _, conn := range conns {
			if !connid.HasWildcard(conn.URI) {
				uris = append(uris, conn.URI)
			}
		}

		if len(uris) == 0 {
			continue
		}

		_, _ = entry.plugin.ConnectForReceives(ctx, transport.ConnectConfig{ConnectionStrings: uris}) //nolint:exhaustruct
	}
}

// pluginNameForURI maps a connection string's scheme to the transport
// plugin name registered for it (e.g. "zmq://..." -> "zmq").
func pluginNameForURI(uri string) string {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return "inproc"
	}

	switch scheme {
	case "zmq", "tcp", "ipc":
		return "zmq"
	case "amqp":
		return "amqp"
	case "rstream", "redis":
		return "rstream"
	default:
		return scheme
	}
}

// rewriteWildcard replaces a "*"/"0.0.0.0" host or "*" port in original with
// the concrete value the plugin resolved to in resolved, patching up the
// advertised URI once a receiver or sender has actually bound.
func rewriteWildcard(original, resolved string) string {
	if !connid.HasWildcard(original) {
		return original
	}

	origScheme, origRest, ok1 := strings.Cut(original, "://")
	_, resRest, ok2 := strings.Cut(resolved, "://")

	if !ok1 || !ok2 {
		return resolved
	}

	origHost, origPort, _ := strings.Cut(origRest, ":")
	resHost, resPort, _ := strings.Cut(resRest, ":")

	host := origHost
	if host == "*" || host == "0.0.0.0" {
		host = resHost
	}

	port := origPort
	if port == "*" {
		port = resPort
	}

	if port == "" {
		return fmt.Sprintf("%s://%s", origScheme, host)
	}

	return fmt.Sprintf("%s://%s:%s", origScheme, host, port)
}
