package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/eser/iomanager/pkg/ajan/connfx"
)

var (
	ErrCommandRequired  = errors.New("goose command is required")
	ErrDSNRequired      = errors.New("IOMANAGER_DIRECTORY_DSN is required")
	ErrFailedToRunGoose = errors.New("failed to run goose")
)

const migrationsPath = "./etc/data/directory/migrations"

// run drives goose against the directory server's Postgres schema: resolve
// a named connfx connection, then hand its *sql.DB to goose. The datasource
// name is fixed ("directory") since this module only ever migrates one
// schema.
func run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return ErrCommandRequired
	}

	command := args[0]
	rest := args[1:]

	dsn := os.Getenv("IOMANAGER_DIRECTORY_DSN")
	if dsn == "" {
		return ErrDSNRequired
	}

	registry := connfx.NewRegistry(connfx.WithDefaultFactories())

	if _, err := registry.AddConnection(ctx, "directory", &connfx.ConfigTarget{ //nolint:exhaustruct
		Protocol: "postgres",
		DSN:      dsn,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToRunGoose, err)
	}

	sqlDB, err := connfx.GetTypedConnection[*sql.DB](registry, "directory")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToRunGoose, err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToRunGoose, err)
	}

	if err := goose.RunContext(ctx, command, sqlDB, migrationsPath, rest...); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToRunGoose, err)
	}

	return nil
}

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Args[1:]); err != nil {
		panic(err)
	}
}
