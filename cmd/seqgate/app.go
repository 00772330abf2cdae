package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/blob"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/cache"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/config"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/metrics"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/resolve"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/service"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/storage"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// app is the wired gateway
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	tier       cache.Tier
	tierActive bool
	store      storage.Store
	pool       *workerpool.Pool
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	exclude    *exclude.Cache
	processors *processor.Registry
	service    *service.GatewayService
	substitute model.AccSubstitution
}

func openTier(cfg config.CacheConfig, logger *zap.Logger) (cache.Tier, error) {
	switch cfg.Backend {
	case "bolt":
		return cache.OpenBoltTier(cfg.Bolt.Path, logger)
	case "redis":
		return cache.NewRedisTier(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, logger)
	case "memory", "none":
		return cache.NewMemoryTier(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case "postgres":
		return storage.NewPostgresStore(ctx, storage.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			MaxConns: cfg.Postgres.MaxConnections,
			MinConns: cfg.Postgres.MinConnections,
		}, logger)
	case "memory":
		store := storage.NewMemoryStore()
		if cfg.Fixtures != "" {
			f, err := storage.LoadFixtures(cfg.Fixtures)
			if err != nil {
				return nil, err
			}
			store.Load(f)
			logger.Info("Loaded storage fixtures", zap.String("path", cfg.Fixtures))
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newApp opens both tiers and builds the service over them
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	substitute, err := model.ParseAccSubstitution(cfg.Resolve.AccSubstitution)
	if err != nil {
		return nil, err
	}

	tier, err := openTier(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache tier: %w", err)
	}
	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		tier.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		tier:       tier,
		tierActive: cfg.Cache.Backend != "none",
		store:      store,
		registry:   prometheus.NewRegistry(),
		processors: processor.NewRegistry(service.Processors()...),
		substitute: substitute,
	}

	a.pool = workerpool.New(&workerpool.Config{
		Name:      "fetch",
		Workers:   cfg.Fetch.Workers,
		QueueSize: cfg.Fetch.QueueSize,
		Logger:    logger,
	})
	a.exclude = exclude.New(exclude.Config{
		MaxEntriesPerClient: cfg.Exclude.MaxEntriesPerClient,
		StaleAfter:          cfg.Exclude.StaleAfter,
		PurgeInterval:       cfg.Exclude.PurgeInterval,
	}, logger)

	a.metrics = metrics.NewMetrics(a.registry)
	a.registry.MustRegister(
		metrics.NewCollector(a.processors, a.pool, a.exclude),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var lookup *cache.Lookup
	if a.tierActive {
		lookup = cache.NewLookup(tier, logger)
	}
	resolver := resolve.NewResolver(lookup, store, a.pool, a.metrics,
		resolve.Config{AnnounceTimeout: cfg.Resolve.AnnounceTimeout}, logger)
	fetcher := blob.NewFetcher(store, a.pool, a.exclude, a.metrics, logger)

	a.service = service.NewGatewayService(resolver, fetcher, a.processors, a.metrics, service.Config{
		MaxActivePerType: cfg.Admission.MaxActivePerType,
		RaceTiers:        cfg.Resolve.RaceTiers && a.tierActive,
		RequestTimeout:   cfg.Server.RequestTimeout,
	}, logger)

	return a, nil
}

// close releases the tiers and drains the pool
func (a *app) close() {
	if err := a.pool.Stop(10 * time.Second); err != nil {
		a.logger.Error("Failed to stop fetch pool", zap.Error(err))
	}
	a.store.Close()
	if err := a.tier.Close(); err != nil {
		a.logger.Error("Failed to close cache tier", zap.Error(err))
	}
}
