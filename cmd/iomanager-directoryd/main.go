// Command iomanager-directoryd runs the reference directory server that
// directory.Client publishes to and resolves against: a small HTTP daemon,
// driven by processfx's lifecycle, in front of a pluggable Store (memstore
// or pgstore).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eser/iomanager/pkg/ajan/configfx"
	"github.com/eser/iomanager/pkg/ajan/httpfx"
	"github.com/eser/iomanager/pkg/ajan/httpfx/middlewares"
	"github.com/eser/iomanager/pkg/ajan/httpfx/modules/healthcheck"
	"github.com/eser/iomanager/pkg/ajan/logfx"
	"github.com/eser/iomanager/pkg/ajan/processfx"
	"github.com/eser/iomanager/pkg/iomanager/directory/server"
	"github.com/eser/iomanager/pkg/iomanager/directory/server/memstore"
	"github.com/eser/iomanager/pkg/iomanager/directory/server/pgstore"
)

var (
	ErrInitFailed        = errors.New("failed to initialize directory daemon")
	ErrUnknownStoreKind  = errors.New("unknown store kind")
	ErrPostgresDSNNeeded = errors.New("postgres_dsn is required when store=pgstore")
)

func buildStore(ctx context.Context, cfg *Config) (server.Store, func(), error) {
	switch cfg.Store {
	case "", "memstore":
		store := memstore.New(cfg.TTL, cfg.SweepInterval)

		return store, func() { _ = store.Close() }, nil
	case "pgstore":
		if cfg.PostgresDSN == "" {
			return nil, nil, ErrPostgresDSNNeeded
		}

		store, err := pgstore.New(ctx, cfg.PostgresDSN, cfg.PostgresConnMaxLifetime)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStoreKind, cfg.Store)
	}
}

func run(ctx context.Context) error {
	cl := configfx.NewConfigManager()

	cfg := &Config{} //nolint:exhaustruct

	if err := cl.LoadDefaults(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	logger := logfx.NewLogger(logfx.WithConfig(&cfg.Log))

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	defer closeStore()

	routes := httpfx.NewRouter("/")

	httpService := httpfx.NewHTTPService(&cfg.HTTP, routes, logger)

	routes.Use(
		middlewares.ResolveAddressMiddleware(),
		middlewares.TracingMiddleware(logger),
		middlewares.MetricsMiddleware(httpService.InnerMetrics),
		middlewares.CorsMiddleware(),
		middlewares.RateLimitMiddleware(middlewares.WithRateLimiterIPKeyFunc()),
	)

	healthcheck.RegisterHTTPRoutes(routes, &cfg.HTTP)
	server.New(routes, store, logger.Logger)

	process := processfx.New(ctx, logger)

	process.StartGoroutine("directory-http", func(ctx context.Context) error {
		cleanup, err := httpService.Start(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "directory daemon HTTP start failed", slog.Any("error", err))

			return err //nolint:wrapcheck
		}

		<-ctx.Done()

		cleanup()

		return nil
	})

	process.Wait()
	process.Shutdown()

	return nil
}

func main() {
	if err := run(context.Background()); err != nil {
		panic(err)
	}
}
