package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/retry"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://es:9200", "http://es:9200"},
		{"https://es:9200", "https://es:9200"},
		{"es:9200", "http://es:9200"},
		{"", "http://localhost:9200"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeURL(tt.input); got != tt.expected {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestConfig_SetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{URL: "http://custom:9200", MaxRetries: 7}
	cfg.SetDefaults()

	if cfg.URL != "http://custom:9200" || cfg.MaxRetries != 7 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.PingTimeout != 5*time.Second {
		t.Errorf("PingTimeout = %v", cfg.PingTimeout)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d", cfg.Retry.MaxAttempts)
	}
}

// flakyCluster fails the first failures requests with 503.
func flakyCluster(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if calls.Add(1) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		IsRetryable:  func(error) bool { return true },
	}
}

func TestNewClient_RetriesUntilClusterAnswers(t *testing.T) {
	srv, calls := flakyCluster(t, 2)

	client, err := NewClient(context.Background(), Config{
		URL:          srv.URL,
		DisableRetry: true,
		Retry:        fastRetry(5),
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client == nil {
		t.Fatal("NewClient() returned nil client")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("ping calls = %d, want 3", got)
	}
}

func TestNewClient_GivesUp(t *testing.T) {
	srv, _ := flakyCluster(t, 100)

	_, err := NewClient(context.Background(), Config{
		URL:          srv.URL,
		DisableRetry: true,
		Retry:        fastRetry(2),
	}, nil)
	if err == nil {
		t.Fatal("NewClient() expected error")
	}
}
