package main

import (
	"time"

	"github.com/eser/iomanager/pkg/ajan/httpfx"
	"github.com/eser/iomanager/pkg/ajan/logfx"
)

// Config is the directory daemon's process configuration, following the
// teacher's AppConfig shape (a flat struct of conf-tagged sections loaded
// once at startup).
type Config struct {
	HTTP httpfx.Config `conf:"http"`
	Log  logfx.Config  `conf:"log"`

	// Store selects the backing directory.server.Store: "memstore" (default,
	// single-instance/testing) or "pgstore" (Postgres, shared across daemons).
	Store string `conf:"store" default:"memstore"`

	// TTL and SweepInterval only apply to memstore.
	TTL           time.Duration `conf:"ttl"            default:"30s"`
	SweepInterval time.Duration `conf:"sweep_interval" default:"10s"`

	// PostgresDSN and PostgresConnMaxLifetime only apply to pgstore.
	PostgresDSN             string        `conf:"postgres_dsn"`
	PostgresConnMaxLifetime time.Duration `conf:"postgres_conn_max_lifetime" default:"1h"`
}
