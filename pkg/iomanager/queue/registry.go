package queue

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/eser/iomanager/pkg/iomanager/connid"
)

// instance is the type-erased entry the registry keeps per queue name: the
// queue itself (boxed as any) plus the reflect.Type it was created with, so
// a later GetQueue[U] call for a different U can be rejected as
// type-mismatch instead of panicking on a bad type assertion.
type instance struct {
	queue    any
	elemType reflect.Type
}

// Registry is the singleton-shaped owner of every lazily-created queue in
// the process, grounded on pkg/ajan/connfx.Registry's map+mutex+factory
// shape: a catalog loaded once at Configure, instances created on first use
// and cached forever after.
type Registry struct {
	catalog   map[string]connid.QueueConfig
	instances map[string]*instance
	logger    *slog.Logger
	mu        sync.RWMutex
	configured bool
}

// NewRegistry constructs an empty, unconfigured Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		catalog:   make(map[string]connid.QueueConfig),
		instances: make(map[string]*instance),
		logger:    logger,
	}
}

// Configure loads the preconfigured catalog. It is idempotent-against-misuse:
// a second call without Reset fails with connid.ErrAlreadyConfigured.
func (r *Registry) Configure(configs []connid.QueueConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.configured {
		return connid.ErrAlreadyConfigured
	}

	for _, cfg := range configs {
		r.catalog[cfg.ID.CacheKey()] = cfg
	}

	r.configured = true

	return nil
}

// HasQueue reports whether the catalog has an entry matching (uid, dataType).
func (r *Registry) HasQueue(uid, dataType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.catalog[connid.ConnectionId{UID: uid, DataType: dataType}.CacheKey()]

	return ok
}

// GetDatatypes returns every data type the catalog binds to uid.
func (r *Registry) GetDatatypes(uid string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string

	for _, cfg := range r.catalog {
		if cfg.ID.UID == uid {
			out = append(out, cfg.ID.DataType)
		}
	}

	return out
}

// GetQueue returns the existing instance for name if present and
// type-compatible, or constructs one from the catalog. T is identified by
// uid+dataType via the ConnectionId embedded in the catalog entry.
func GetQueue[T any](r *Registry, id connid.ConnectionId) (Queue[T], error) {
	key := id.CacheKey()
	wantType := reflect.TypeFor[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.instances[key]; ok {
		if existing.elemType != wantType {
			return nil, fmt.Errorf(
				"%w (name=%q, have=%s, want=%s)",
				connid.ErrTypeMismatch, key, existing.elemType, wantType,
			)
		}

		q, ok := existing.queue.(Queue[T])
		if !ok {
			return nil, fmt.Errorf("%w (name=%q)", connid.ErrTypeMismatch, key)
		}

		return q, nil
	}

	cfg, ok := r.catalog[key]
	if !ok {
		return nil, fmt.Errorf("%w (uid=%q, data_type=%q)", connid.ErrConnectionNotFound, id.UID, id.DataType)
	}

	var q Queue[T]

	switch cfg.Variant {
	case connid.QueueVariantDeque:
		q = NewDeque[T](int(cfg.Capacity))
	case connid.QueueVariantSPSC:
		q = NewSPSC[T](int(cfg.Capacity))
	case connid.QueueVariantMPMC:
		q = NewMPMC[T](int(cfg.Capacity))
	default:
		return nil, fmt.Errorf("%w (variant=%d)", connid.ErrQueueTypeUnknown, cfg.Variant)
	}

	r.instances[key] = &instance{queue: q, elemType: wantType}

	r.logger.Info("queue created",
		slog.String("uid", id.UID),
		slog.String("data_type", id.DataType),
		slog.String("variant", cfg.Variant.String()),
		slog.Int("capacity", int(cfg.Capacity)),
	)

	return q, nil
}

// Reset drops every instance (test hook); it does not clear the catalog, so
// a subsequent GetQueue recreates queues from the same configuration. It
// does NOT reset `configured`: the intent is to tear down live state while
// keeping static config — call ResetConfig if the catalog itself must be
// reloaded.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances = make(map[string]*instance)
}

// ResetConfig clears both instances and the catalog, allowing a fresh
// Configure call. Intended for test tear-down between independently
// configured test cases.
func (r *Registry) ResetConfig() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances = make(map[string]*instance)
	r.catalog = make(map[string]connid.QueueConfig)
	r.configured = false
}
