package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/config"
	"github.com/jonesrussell/north-cloud/search-admin/internal/gateway"
)

// SetupGateway creates the configured gateway transport. With the redis
// transport and run_worker set, it also returns a worker that executes
// commands in this process.
func SetupGateway(
	ctx context.Context,
	cfg *config.Config,
	engine gateway.Engine,
	redisClient *redis.Client,
	log infralogger.Logger,
) (gateway.Gateway, *gateway.Worker, error) {
	gwLog := log.With(infralogger.String("component", "gateway"))

	if cfg.Gateway.Transport != config.TransportRedis {
		return gateway.NewLocal(engine, cfg.Gateway.CommandTimeout, gwLog), nil, nil
	}

	gw, err := gateway.NewRedis(ctx, redisClient, cfg.Gateway.ChannelPrefix, gwLog)
	if err != nil {
		return nil, nil, fmt.Errorf("redis gateway: %w", err)
	}

	var worker *gateway.Worker
	if cfg.Gateway.RunWorker {
		worker = gateway.NewWorker(redisClient, engine, cfg.Gateway.ChannelPrefix, cfg.Gateway.CommandTimeout, gwLog)
	}
	return gw, worker, nil
}
