// Package pgstore is the Postgres-backed directory.server.Store, grounded
// on pkg/ajan/connfx/adapter_sql.go's sql.Open/PingContext/pool-configure
// pattern. Schema is managed out-of-band by cmd/iomanager-migrate (goose).
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/eser/iomanager/pkg/iomanager/directory/server"
)

var (
	ErrFailedToOpenConnection = errors.New("pgstore: failed to open connection")
	ErrFailedToPing           = errors.New("pgstore: failed to ping database")
)

// Store is a Postgres-backed Store. The schema it expects (table
// directory_entries) is created by cmd/iomanager-migrate's migrations.
type Store struct {
	db *sql.DB
}

// New opens a connection pool against dsn and verifies it with a ping.
func New(ctx context.Context, dsn string, connMaxLifetime time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToOpenConnection, err)
	}

	if connMaxLifetime > 0 {
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrFailedToPing, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Publish(ctx context.Context, entries []server.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const upsert = `
		INSERT INTO directory_entries (partition, session, uid, data_type, uri, kind, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (partition, session, uid, data_type)
		DO UPDATE SET uri = excluded.uri, kind = excluded.kind, registered_at = excluded.registered_at
	`

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, upsert,
			e.Partition, e.Session, e.UID, e.DataType, e.URI, e.Kind, e.RegisteredAt,
		); err != nil {
			return fmt.Errorf("pgstore: upsert entry (uid=%q): %w", e.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}

	return nil
}

func (s *Store) Retract(ctx context.Context, partition string, uids []server.UIDDataType) error {
	const del = `DELETE FROM directory_entries WHERE partition = $1 AND uid = $2 AND data_type = $3`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, u := range uids {
		if _, err := tx.ExecContext(ctx, del, partition, u.UID, u.DataType); err != nil {
			return fmt.Errorf("pgstore: delete entry (uid=%q): %w", u.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}

	return nil
}

func (s *Store) Query(ctx context.Context, partition, session, uidRegex, dataType string) ([]server.Entry, error) {
	const q = `
		SELECT partition, session, uid, data_type, uri, kind, registered_at
		FROM directory_entries
		WHERE partition = $1
		  AND uid ~ $2
		  AND ($3 = '' OR data_type = $3)
		  AND ($4 = '' OR session = '' OR session = $4)
	`

	rows, err := s.db.QueryContext(ctx, q, partition, uidRegex, dataType, session)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query: %w", err)
	}
	defer rows.Close()

	var out []server.Entry

	for rows.Next() {
		var e server.Entry

		if err := rows.Scan(&e.Partition, &e.Session, &e.UID, &e.DataType, &e.URI, &e.Kind, &e.RegisteredAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan: %w", err)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: rows: %w", err)
	}

	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ server.Store = (*Store)(nil)
