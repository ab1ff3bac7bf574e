package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsharvest/internal/api"
	"github.com/IshaanNene/newsharvest/internal/cache"
	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/observability"
	"github.com/IshaanNene/newsharvest/internal/storage"
)

var servePort int

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the top-liked articles API",
		Long: `Serve GET /articles/top-likes?source=&top=&days= over the article store,
plus /api/health, /api/stats and /metrics. When api.redis_addr is set, query
results are cached in Redis for api.cache_ttl.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "override api.port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if servePort > 0 {
			cfg.API.Port = servePort
		}
	}, config.ValidateServing)
	if err != nil {
		return err
	}

	logger, logCloser, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	metrics := observability.NewMetrics(logger)
	querier, closeCache := newTopQuerier(ctx, cfg.API, store, metrics, logger)
	defer closeCache()

	server := api.NewServer(cfg.API, querier, metrics, logger)
	return server.Run(ctx)
}

// newTopQuerier puts the Redis result cache in front of store when
// api.redis_addr is set. The returned func releases the cache connection.
func newTopQuerier(ctx context.Context, cfg config.APIConfig, store api.Querier, metrics *observability.Metrics, logger *slog.Logger) (api.Querier, func()) {
	if cfg.RedisAddr == "" {
		return store, func() {}
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, "", 0, "newsharvest", logger)
	if err != nil {
		// Queries still work without the cache.
		logger.Warn("redis cache unavailable", "addr", cfg.RedisAddr, "error", err)
		return store, func() {}
	}
	tc := cache.NewTopCache(store, rc, cfg.CacheTTL, logger)
	metrics.ObserveCache(func() (int64, int64) { return tc.Hits(), tc.Misses() })
	return tc, func() { _ = rc.Close() }
}
