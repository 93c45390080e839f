package bootstrap

import (
	"fmt"

	infraconfig "github.com/jonesrussell/north-cloud/search-admin/infrastructure/config"
	infralogger "github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/config"
)

// LoadConfig loads and validates configuration.
func LoadConfig() (*config.Config, error) {
	configPath := infraconfig.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (infralogger.Logger, error) {
	log, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(infralogger.String("service", cfg.Service.Name)), nil
}

// LogStartup records how the engine gateway and mapping store are wired,
// and warns about settings that change client-visible behaviour.
func LogStartup(log infralogger.Logger, cfg *config.Config) {
	log.Info("Starting Search Admin Service",
		infralogger.String("name", cfg.Service.Name),
		infralogger.String("version", cfg.Service.Version),
		infralogger.Int("port", cfg.Service.Port),
		infralogger.String("gateway_transport", cfg.Gateway.Transport),
		infralogger.Bool("gateway_worker", runsWorker(cfg)),
		infralogger.Duration("correlation_timeout", cfg.Gateway.CorrelationTimeout),
		infralogger.Duration("command_timeout", cfg.Gateway.CommandTimeout),
		infralogger.String("mapping_store", cfg.MappingStore.Driver),
		infralogger.String("mapping_store_location", storeLocation(cfg)),
	)

	for _, warning := range startupWarnings(cfg) {
		log.Warn(warning)
	}
}

// runsWorker reports whether engine commands execute in this process.
func runsWorker(cfg *config.Config) bool {
	return cfg.Gateway.Transport == config.TransportLocal || cfg.Gateway.RunWorker
}

func storeLocation(cfg *config.Config) string {
	switch cfg.MappingStore.Driver {
	case config.DriverPostgres:
		return fmt.Sprintf("postgres://%s:%d/%s#%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, cfg.MappingStore.Document)
	case config.DriverRedis:
		return "redis://" + cfg.Redis.Address + "/" + cfg.MappingStore.RedisKey
	default:
		return cfg.MappingStore.Path
	}
}

func startupWarnings(cfg *config.Config) []string {
	var warnings []string
	if !runsWorker(cfg) {
		warnings = append(warnings, fmt.Sprintf(
			"No engine worker in this process; index commands fail until a worker listens under %q",
			cfg.Gateway.ChannelPrefix))
	}
	if cfg.Admin.LegacyConflictStatus {
		warnings = append(warnings, "Legacy conflict status enabled; duplicate mapping creates answer 404")
	}
	return warnings
}
