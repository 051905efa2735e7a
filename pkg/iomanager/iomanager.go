// Package iomanager is the fabric's façade entry point: a singleton-shaped
// dispatcher that classifies a ConnectionId as queue-backed or
// network-backed and returns a cached, typed sender/receiver handle.
package iomanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"

	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/directory"
	"github.com/eser/iomanager/pkg/iomanager/network"
	"github.com/eser/iomanager/pkg/iomanager/queue"
	"github.com/eser/iomanager/pkg/iomanager/transport"
)

// handleEntry is the type-erased cache slot: the concrete Sender[T]/
// Receiver[T] boxed as any, plus the reflect.Type it was built for, so a
// later request for the same id with a different T is rejected as
// type-mismatch instead of panicking on a bad assertion.
type handleEntry struct {
	handle   any
	elemType reflect.Type
}

// IOManager is the process-wide façade. Construct one with New, Configure it
// once, and Reset it in test tear-down; it is safe for concurrent use.
type IOManager struct {
	logger  *slog.Logger
	session string

	Queues    *queue.Registry
	Network   *network.Manager
	Codecs    *codec.Registry
	Directory *directory.Client

	mu         sync.Mutex
	configured bool

	senderMu sync.Mutex
	senders  map[string]handleEntry

	receiverMu sync.Mutex
	receivers  map[string]handleEntry
}

// New constructs an unconfigured IOManager bound to factory (the
// transport.MultiFactory used to create wire-transport plugins) and codecs
// (the serialization registry consulted by every network handle).
func New(logger *slog.Logger, factory *transport.MultiFactory, codecs *codec.Registry) *IOManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &IOManager{
		logger:    logger,
		Queues:    queue.NewRegistry(logger),
		Network:   network.NewManager(logger, factory),
		Codecs:    codecs,
		senders:   make(map[string]handleEntry),
		receivers: make(map[string]handleEntry),
	} //nolint:exhaustruct
}

// Configure loads cfg's connection/queue catalogs and, if cfg.UseDirectory,
// constructs a directory.Client and wires it into the network manager as
// its Resolver. A second Configure without Reset fails with
// ErrAlreadyConfigured.
func (m *IOManager) Configure(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configured {
		return ErrAlreadyConfigured
	}

	session := cfg.Session
	if session == "" {
		session = os.Getenv("DUNEDAQ_PARTITION")
	}

	if err := m.Queues.Configure(cfg.Queues); err != nil {
		return err
	}

	var resolver network.Resolver

	if cfg.UseDirectory {
		client, err := directory.NewClient(ctx, cfg.DirectoryURL, session, cfg.Session, cfg.PublishInterval, m.logger)
		if err != nil {
			return err
		}

		m.Directory = client
		resolver = client
	}

	if err := m.Network.Configure(cfg.Connections, resolver, cfg.PublishInterval); err != nil {
		return err
	}

	m.session = session
	m.configured = true

	return nil
}

// Reset tears down every live handle, the network manager, the queue
// registry, and (if present) the directory client: it stops the subscriber
// loop, joins the directory thread, retracts registrations, and clears
// caches. It is idempotent.
func (m *IOManager) Reset() {
	m.mu.Lock()
	directoryClient := m.Directory
	m.Directory = nil
	m.configured = false
	m.session = ""
	m.mu.Unlock()

	m.Network.Reset()
	m.Queues.ResetConfig()

	if directoryClient != nil {
		_ = directoryClient.Close(context.Background())
	}

	m.senderMu.Lock()
	m.senders = make(map[string]handleEntry)
	m.senderMu.Unlock()

	m.receiverMu.Lock()
	m.receivers = make(map[string]handleEntry)
	m.receiverMu.Unlock()
}

// Session returns the process-wide session every empty-session ConnectionId
// is defaulted to.
func (m *IOManager) Session() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.session
}

// resolveId defaults id.Session to the manager's process-wide session when
// empty and checks id.DataType against any data type RegisterDataType[T]
// declared.
func resolveId[T any](m *IOManager, id connid.ConnectionId) (connid.ConnectionId, error) {
	if want, ok := dataTypeFor[T](); ok && want != id.DataType {
		return connid.ConnectionId{}, fmt.Errorf(
			"%w (data_type=%q, want=%q)", ErrTypeMismatch, id.DataType, want,
		)
	}

	if id.Session == "" {
		id.Session = m.Session()
	}

	return id, nil
}

// cacheKey is the handle cache's lookup key: CacheKey() already folds in
// uid+data_type; Session is appended explicitly because, unlike the queue
// registry's queue-name cache, the handle cache caches at most one sender
// and one receiver handle per full ConnectionId, not per uid+data_type.
func cacheKey(id connid.ConnectionId) string {
	return id.CacheKey() + "\x00" + id.Session
}
