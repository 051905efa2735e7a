// Package memstore is the default in-memory directory.server.Store: a
// mutex-guarded map plus a background sweep that evicts entries whose
// RegisteredAt has gone stale, mirroring the original config server's
// heartbeat-expiry behavior without a database dependency.
package memstore

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/eser/iomanager/pkg/iomanager/directory/server"
)

type key struct {
	partition string
	session   string
	uid       string
	dataType  string
}

// Store is an in-process Store, suitable for tests and single-instance
// deployments.
type Store struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[key]server.Entry

	stop chan struct{}
	done chan struct{}
}

// New creates a Store that evicts entries older than ttl (0 disables
// eviction) every sweepInterval.
func New(ttl, sweepInterval time.Duration) *Store {
	s := &Store{ //nolint:exhaustruct
		ttl:     ttl,
		entries: make(map[key]server.Entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if ttl > 0 {
		if sweepInterval <= 0 {
			sweepInterval = ttl / 2
		}

		go s.sweepLoop(sweepInterval)
	} else {
		close(s.done)
	}

	return s
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if e.RegisteredAt.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *Store) Publish(_ context.Context, entries []server.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries[key{partition: e.Partition, session: e.Session, uid: e.UID, dataType: e.DataType}] = e
	}

	return nil
}

func (s *Store) Retract(_ context.Context, partition string, uids []server.UIDDataType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range uids {
		for k := range s.entries {
			if k.partition == partition && k.uid == u.UID && k.dataType == u.DataType {
				delete(s.entries, k)
			}
		}
	}

	return nil
}

func (s *Store) Query(_ context.Context, partition, session, uidRegex, dataType string) ([]server.Entry, error) {
	re, err := regexp.Compile(uidRegex)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []server.Entry

	for k, e := range s.entries {
		if k.partition != partition {
			continue
		}

		if session != "" && k.session != "" && k.session != session {
			continue
		}

		if dataType != "" && k.dataType != dataType {
			continue
		}

		if !re.MatchString(k.uid) {
			continue
		}

		out = append(out, e)
	}

	return out, nil
}

func (s *Store) Close() error {
	if s.ttl > 0 {
		close(s.stop)
		<-s.done
	}

	return nil
}

var _ server.Store = (*Store)(nil)
