package config

import (
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/search-admin/infrastructure/config"
	"github.com/jonesrussell/north-cloud/search-admin/internal/elasticsearch/mappings"
)

// Default configuration values.
const (
	defaultServiceName        = "search-admin"
	defaultServiceVersion     = "1.0.0"
	defaultServicePort        = 8095
	defaultAdminRole          = "admin"
	defaultTransport          = TransportLocal
	defaultChannelPrefix      = "search-admin:engine"
	defaultCorrelationTimeout = 10 * time.Second
	defaultCommandTimeout     = 30 * time.Second
	defaultStoreDriver        = DriverFile
	defaultStorePath          = "mappings.json"
	defaultStoreDocument      = "default"
	defaultStoreRedisKey      = "search-admin:mappings"
	defaultStoreMaxAttempts   = 5
	defaultDBName             = "search_admin"
)

// Gateway transports.
const (
	TransportLocal = "local"
	TransportRedis = "redis"
)

// Mapping store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	Service       ServiceConfig              `yaml:"service"`
	Auth          AuthConfig                 `yaml:"auth"`
	Admin         AdminConfig                `yaml:"admin"`
	Elasticsearch ElasticsearchConfig        `yaml:"elasticsearch"`
	Gateway       GatewayConfig              `yaml:"gateway"`
	MappingStore  MappingStoreConfig         `yaml:"mapping_store"`
	Database      infraconfig.DatabaseConfig `yaml:"database"`
	Redis         infraconfig.RedisConfig    `yaml:"redis"`
	Logging       infraconfig.LoggingConfig  `yaml:"logging"`
}

// ServiceConfig holds service configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SEARCH_ADMIN_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"         yaml:"debug"`
}

// AuthConfig holds JWT validation settings.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"` //nolint:gosec // signing secret
	AdminRole string `env:"AUTH_ADMIN_ROLE" yaml:"admin_role"`
}

// AdminConfig tunes the admin HTTP surface.
type AdminConfig struct {
	// LegacyConflictStatus answers a duplicate mapping create with 404
	// instead of 409, for clients written against the old service.
	LegacyConflictStatus bool `env:"ADMIN_LEGACY_CONFLICT_STATUS" yaml:"legacy_conflict_status"`
}

// ElasticsearchConfig holds Elasticsearch connection and index settings.
type ElasticsearchConfig struct {
	infraconfig.ElasticsearchConfig `yaml:",inline"`

	Shards   int `yaml:"shards"`
	Replicas int `yaml:"replicas"`
}

// GatewayConfig selects how engine commands travel.
type GatewayConfig struct {
	Transport          string        `env:"GATEWAY_TRANSPORT"           yaml:"transport"`
	ChannelPrefix      string        `env:"GATEWAY_CHANNEL_PREFIX"      yaml:"channel_prefix"`
	CorrelationTimeout time.Duration `env:"GATEWAY_CORRELATION_TIMEOUT" yaml:"correlation_timeout"`
	CommandTimeout     time.Duration `env:"GATEWAY_COMMAND_TIMEOUT"     yaml:"command_timeout"`
	// RunWorker also executes commands in this process when the transport
	// is redis.
	RunWorker bool `env:"GATEWAY_RUN_WORKER" yaml:"run_worker"`
}

// MappingStoreConfig selects where mappings are persisted.
type MappingStoreConfig struct {
	Driver      string `env:"MAPPING_STORE_DRIVER" yaml:"driver"`
	Path        string `env:"MAPPING_STORE_PATH"   yaml:"path"`
	Document    string `yaml:"document"`
	RedisKey    string `yaml:"redis_key"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	if cfg.Auth.AdminRole == "" {
		cfg.Auth.AdminRole = defaultAdminRole
	}
	setElasticsearchDefaults(&cfg.Elasticsearch)
	setGatewayDefaults(&cfg.Gateway)
	setMappingStoreDefaults(&cfg.MappingStore)
	if cfg.Database.Database == "" {
		cfg.Database.Database = defaultDBName
	}
	cfg.Database.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.Logging.SetDefaults()
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setElasticsearchDefaults(e *ElasticsearchConfig) {
	e.ElasticsearchConfig.SetDefaults()
	// Replicas keep their zero value, which is also the index default.
	if e.Shards == 0 {
		e.Shards = mappings.DefaultSettings().NumberOfShards
	}
}

func setGatewayDefaults(g *GatewayConfig) {
	if g.Transport == "" {
		g.Transport = defaultTransport
	}
	if g.ChannelPrefix == "" {
		g.ChannelPrefix = defaultChannelPrefix
	}
	if g.CorrelationTimeout == 0 {
		g.CorrelationTimeout = defaultCorrelationTimeout
	}
	if g.CommandTimeout == 0 {
		g.CommandTimeout = defaultCommandTimeout
	}
}

func setMappingStoreDefaults(m *MappingStoreConfig) {
	if m.Driver == "" {
		m.Driver = defaultStoreDriver
	}
	if m.Path == "" {
		m.Path = defaultStorePath
	}
	if m.Document == "" {
		m.Document = defaultStoreDocument
	}
	if m.RedisKey == "" {
		m.RedisKey = defaultStoreRedisKey
	}
	if m.MaxAttempts == 0 {
		m.MaxAttempts = defaultStoreMaxAttempts
	}
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Gateway.Transport == TransportRedis || c.MappingStore.Driver == DriverRedis
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("auth.jwt_secret", c.Auth.JWTSecret); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("elasticsearch.url", c.Elasticsearch.URL); err != nil {
		return err
	}
	if c.Elasticsearch.Shards < 1 {
		return &infraconfig.ValidationError{Field: "elasticsearch.shards", Message: "must be at least 1"}
	}
	if c.Elasticsearch.Replicas < 0 {
		return &infraconfig.ValidationError{Field: "elasticsearch.replicas", Message: "must not be negative"}
	}
	if err := infraconfig.ValidateOneOf("gateway.transport", c.Gateway.Transport,
		TransportLocal, TransportRedis); err != nil {
		return err
	}
	if c.Gateway.CorrelationTimeout <= 0 {
		return &infraconfig.ValidationError{Field: "gateway.correlation_timeout", Message: "must be positive"}
	}
	if err := infraconfig.ValidateOneOf("mapping_store.driver", c.MappingStore.Driver,
		DriverFile, DriverPostgres, DriverRedis); err != nil {
		return err
	}
	if c.MappingStore.Driver == DriverPostgres {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if c.UsesRedis() {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	return c.Logging.Validate()
}
