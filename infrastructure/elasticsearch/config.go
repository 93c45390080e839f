package elasticsearch

import (
	"time"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/retry"
)

// Config holds connection settings.
type Config struct {
	URL      string
	Username string
	Password string //nolint:gosec // connection config
	APIKey   string

	// MaxRetries is the transport-level retry count for each request.
	MaxRetries         int
	DisableRetry       bool
	PingTimeout        time.Duration
	InsecureSkipVerify bool

	// Retry governs the startup connection check.
	Retry retry.Config
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:9200"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			IsRetryable:  func(error) bool { return true },
		}
	}
}
