// Package server implements the reference connectivity-directory server:
// an HTTP+JSON service answering /publish, /retract and /getconnection
// requests from directory.Client, backed by a pluggable Store.
package server

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one registered connection, keyed by (Partition, Session, UID,
// DataType). RegisteredAt drives TTL expiry: a Store is free to drop an
// Entry once it has gone stale for longer than its configured TTL, mirroring
// the original config server's "last heartbeat" eviction. Metadata is an
// optional opaque JSON blob. The memory store keeps it with the Entry
// unchanged; the Postgres store has no column for it and does not store it,
// so Entries read back from Postgres have no Metadata.
type Entry struct {
	Partition    string
	Session      string
	UID          string
	DataType     string
	URI          string
	Kind         string
	RegisteredAt time.Time
	Metadata     json.RawMessage
}

// Store is the persistence boundary a directory server is built on. Publish
// is an upsert; Retract deletes by identity; Query returns every Entry in
// partition (optionally scoped to session) whose UID matches uidRegex and
// whose DataType equals dataType (when dataType is non-empty).
type Store interface {
	Publish(ctx context.Context, entries []Entry) error
	Retract(ctx context.Context, partition string, uids []UIDDataType) error
	Query(ctx context.Context, partition, session, uidRegex, dataType string) ([]Entry, error)
	Close() error
}

// UIDDataType identifies one connection for retraction.
type UIDDataType struct {
	UID      string
	DataType string
}
