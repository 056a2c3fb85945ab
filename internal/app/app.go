// Package app wires the querier components from configuration.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/Karekin/influxdb/internal/cache"
	"github.com/Karekin/influxdb/internal/catalog"
	"github.com/Karekin/influxdb/internal/config"
	"github.com/Karekin/influxdb/internal/ingest"
	"github.com/Karekin/influxdb/internal/logging"
	"github.com/Karekin/influxdb/internal/observability"
	"github.com/Karekin/influxdb/internal/querier"
	"github.com/Karekin/influxdb/internal/storage"
)

// App owns the shared resources of one querier process.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	registry *observability.Registry
	catalog  *catalog.SQLiteCatalog
	storage  storage.ObjectStorage
	cache    *cache.CatalogCache
	adapter  *querier.ParquetChunkAdapter
	querier  *querier.Querier
	ingester *ingest.Ingester

	closeOnce sync.Once
	closeErr  error
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	clock  clockwork.Clock
	logger *zerolog.Logger
}

// WithClock overrides the wall clock used for chunk access times and
// ingest timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(o *appOptions) { o.clock = clock }
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *appOptions) { o.logger = &logger }
}

// New validates cfg and opens every component. The caller must Close the
// returned App.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	o := appOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.New(cfg.Log, nil)
	if o.logger != nil {
		logger = *o.logger
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: observability.NewRegistry(),
	}

	var err error
	a.storage, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info().Str("type", cfg.Storage.Type).Msg("storage initialized")

	a.catalog, err = catalog.NewCatalog(cfg.Catalog.Path, logging.Component(logger, "catalog"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	logger.Info().Str("path", cfg.Catalog.Path).Msg("catalog initialized")

	a.cache = cache.NewCatalogCache(a.catalog, cache.Config{
		TableCapacity:     cfg.Cache.TableCapacity,
		NamespaceCapacity: cfg.Cache.NamespaceCapacity,
		PartitionCapacity: cfg.Cache.PartitionCapacity,
	}, a.registry, logger)
	a.adapter = querier.NewParquetChunkAdapter(a.cache, a.storage, a.registry, o.clock, logger)
	a.querier = querier.NewQuerier(a.catalog, a.adapter, cfg.Querier.Concurrency, logger)
	a.ingester = ingest.NewIngester(a.catalog, a.storage, a.registry, o.clock, logger)

	return a, nil
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the process logger.
func (a *App) Logger() zerolog.Logger { return a.logger }

// Registry returns the metrics registry.
func (a *App) Registry() *observability.Registry { return a.registry }

// Catalog returns the catalog data store.
func (a *App) Catalog() catalog.Catalog { return a.catalog }

// Storage returns the object store.
func (a *App) Storage() storage.ObjectStorage { return a.storage }

// Adapter returns the chunk adapter.
func (a *App) Adapter() *querier.ParquetChunkAdapter { return a.adapter }

// Querier returns the table-wide chunk loader.
func (a *App) Querier() *querier.Querier { return a.querier }

// Ingester returns the parquet file ingester.
func (a *App) Ingester() *ingest.Ingester { return a.ingester }

// Close releases the catalog connections. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.catalog != nil {
			a.closeErr = a.catalog.Close()
		}
		a.logger.Debug().Msg("app closed")
	})
	return a.closeErr
}
