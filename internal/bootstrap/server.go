package bootstrap

import (
	"context"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	infraes "github.com/jonesrussell/north-cloud/search-admin/infrastructure/elasticsearch"
	infragin "github.com/jonesrussell/north-cloud/search-admin/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/api"
	"github.com/jonesrussell/north-cloud/search-admin/internal/config"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
	"github.com/jonesrussell/north-cloud/search-admin/internal/mappingstore"
	"github.com/jonesrussell/north-cloud/search-admin/internal/telemetry"
)

const (
	// Correlated requests can wait up to correlation_timeout twice (flush).
	httpReadTimeout  = 15 * time.Second
	httpIdleTimeout  = 60 * time.Second
	writeTimeoutSlop = 5 * time.Second
	healthPingLimit  = 2 * time.Second
)

// SetupHTTPServer creates and configures the HTTP server.
func SetupHTTPServer(
	cfg *config.Config,
	indexes api.IndexOperations,
	store *mappingstore.Store,
	esClient *es.Client,
	redisClient *redis.Client,
	metrics *telemetry.Metrics,
	log infralogger.Logger,
) *infragin.Server {
	handler := api.NewHandler(indexes, store, log, api.HandlerConfig{
		AdminRole:            domain.Role(cfg.Auth.AdminRole),
		LegacyConflictStatus: cfg.Admin.LegacyConflictStatus,
	})

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(httpReadTimeout, 2*cfg.Gateway.CorrelationTimeout+writeTimeoutSlop, httpIdleTimeout).
		WithMetricsHandler(metrics.Handler()).
		WithHealthCheck("elasticsearch", infragin.PingChecker("elasticsearch", infragin.HealthStatusUnhealthy,
			func(ctx context.Context) error {
				return infraes.Ping(ctx, esClient, healthPingLimit)
			})).
		WithHealthCheck("mapping_store", infragin.PingChecker("mapping_store", infragin.HealthStatusUnhealthy, store.Ping)).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, handler, cfg.Auth.JWTSecret)
		})

	if redisClient != nil {
		builder = builder.WithHealthCheck("redis", infragin.PingChecker("redis", infragin.HealthStatusDegraded,
			func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}))
	}

	return builder.Build()
}
