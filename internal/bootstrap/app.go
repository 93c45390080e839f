// Package bootstrap handles application initialization and lifecycle management
// for the search-admin service.
package bootstrap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	infralogger "github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/correlator"
	"github.com/jonesrussell/north-cloud/search-admin/internal/telemetry"
)

// Start initializes and runs the search-admin service until it is signalled
// to stop.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	LogStartup(log, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := telemetry.New()

	// Phase 2: Shared connections
	redisClient, err := SetupRedis(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup Redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	esClient, err := SetupElasticsearch(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to setup Elasticsearch: %w", err)
	}

	// Phase 3: Mapping store
	store, closeStore, err := SetupMappingStore(ctx, cfg, redisClient, metrics, log)
	if err != nil {
		return fmt.Errorf("failed to setup mapping store: %w", err)
	}
	defer closeStore()

	// Phase 4: Engine gateway and correlator
	engine := NewEngine(cfg, esClient, store, log)
	gw, worker, err := SetupGateway(ctx, cfg, engine, redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to setup gateway: %w", err)
	}
	defer func() {
		if closeErr := gw.Close(); closeErr != nil {
			log.Error("Failed to close gateway", infralogger.Error(closeErr))
		}
	}()

	corr := correlator.New(gw, cfg.Gateway.CorrelationTimeout, log, correlator.WithRecorder(metrics))

	// Phase 5: HTTP server and background loops
	server := SetupHTTPServer(cfg, corr, store, esClient, redisClient, metrics, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return corr.Run(gctx)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return server.RunWithGracefulShutdown(gctx)
	})

	if runErr := g.Wait(); runErr != nil {
		log.Error("Server error", infralogger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Search Admin Service stopped")
	return nil
}
