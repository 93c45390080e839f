package bootstrap

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	infraes "github.com/jonesrussell/north-cloud/search-admin/infrastructure/elasticsearch"
	infralogger "github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/search-admin/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/search-admin/internal/config"
	"github.com/jonesrussell/north-cloud/search-admin/internal/elasticsearch"
	"github.com/jonesrussell/north-cloud/search-admin/internal/elasticsearch/mappings"
)

// SetupRedis connects to Redis when the gateway or the mapping store needs
// it. It returns nil otherwise.
func SetupRedis(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil //nolint:nilnil // Redis is optional
	}

	client, err := infraredis.NewClient(ctx, infraredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}

	log.Info("Redis connection established", infralogger.String("address", cfg.Redis.Address))
	return client, nil
}

// SetupElasticsearch creates an Elasticsearch client.
func SetupElasticsearch(ctx context.Context, cfg *config.Config, log infralogger.Logger) (*es.Client, error) {
	esConfig := infraes.Config{
		URL:         cfg.Elasticsearch.URL,
		Username:    cfg.Elasticsearch.Username,
		Password:    cfg.Elasticsearch.Password,
		MaxRetries:  cfg.Elasticsearch.MaxRetries,
		PingTimeout: cfg.Elasticsearch.Timeout,
	}

	client, err := infraes.NewClient(ctx, esConfig, log)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

// NewEngine builds the engine adapter that executes gateway commands.
func NewEngine(
	cfg *config.Config,
	client *es.Client,
	source elasticsearch.MappingSource,
	log infralogger.Logger,
) *elasticsearch.Engine {
	settings := mappings.Settings{
		NumberOfShards:   cfg.Elasticsearch.Shards,
		NumberOfReplicas: cfg.Elasticsearch.Replicas,
	}
	return elasticsearch.NewEngine(
		elasticsearch.NewClient(client),
		source,
		settings,
		log.With(infralogger.String("component", "engine")),
	)
}
