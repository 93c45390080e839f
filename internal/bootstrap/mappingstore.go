package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/config"
	"github.com/jonesrussell/north-cloud/search-admin/internal/database"
	"github.com/jonesrussell/north-cloud/search-admin/internal/mappingstore"
)

// SetupMappingStore opens the configured mapping store backend. The
// returned func releases whatever the backend holds open.
func SetupMappingStore(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	recorder mappingstore.Recorder,
	log infralogger.Logger,
) (*mappingstore.Store, func(), error) {
	noop := func() {}
	storeLog := log.With(infralogger.String("component", "mapping_store"))

	var (
		backend mappingstore.Backend
		closeFn = noop
	)

	switch cfg.MappingStore.Driver {
	case config.DriverPostgres:
		conn, err := database.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("database connection: %w", err)
		}
		closeFn = func() {
			if closeErr := conn.Close(); closeErr != nil {
				log.Error("Failed to close database connection", infralogger.Error(closeErr))
			}
		}

		pg := mappingstore.NewPostgresBackend(conn.DB, cfg.MappingStore.Document)
		if err = pg.EnsureSchema(ctx); err != nil {
			closeFn()
			return nil, noop, fmt.Errorf("ensure mapping schema: %w", err)
		}
		backend = pg

	case config.DriverRedis:
		backend = mappingstore.NewRedisBackend(redisClient, cfg.MappingStore.RedisKey, cfg.MappingStore.MaxAttempts)

	default:
		backend = mappingstore.NewFileBackend(cfg.MappingStore.Path)
	}

	storeLog.Info("Mapping store ready", infralogger.String("driver", cfg.MappingStore.Driver))
	return mappingstore.New(backend, storeLog, mappingstore.WithRecorder(recorder)), closeFn, nil
}
