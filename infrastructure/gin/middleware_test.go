package gin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ginpkg "github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/search-admin/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
)

func init() {
	ginpkg.SetMode(ginpkg.TestMode)
}

func TestRequestIDLoggerMiddleware_RequestIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		inbound   string
		wantKept  bool
		wantHexID bool
	}{
		{name: "generated when absent", wantHexID: true},
		{name: "inbound id kept", inbound: "upstream-7f3a", wantKept: true},
		{name: "oversized inbound id replaced", inbound: strings.Repeat("x", 200), wantHexID: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := ginpkg.New()
			router.Use(infragin.RequestIDLoggerMiddleware(logger.NewNop()))

			var ctxID string
			router.GET("/probe", func(c *ginpkg.Context) {
				ctxID = c.GetString(infragin.RequestIDKey)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/probe", http.NoBody)
			if tt.inbound != "" {
				req.Header.Set(infragin.RequestIDHeader, tt.inbound)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get(infragin.RequestIDHeader)
			if got != ctxID {
				t.Errorf("header id %q differs from context id %q", got, ctxID)
			}
			if tt.wantKept && got != tt.inbound {
				t.Errorf("request id = %q, want %q", got, tt.inbound)
			}
			if tt.wantHexID && len(got) != 32 {
				t.Errorf("generated request id %q has length %d, want 32", got, len(got))
			}
		})
	}
}

func TestRequestIDLoggerMiddleware_UniqueAndScopedLogger(t *testing.T) {
	t.Parallel()

	base := logger.NewNop()
	router := ginpkg.New()
	router.Use(infragin.RequestIDLoggerMiddleware(base))

	var scoped logger.Logger
	router.GET("/probe", func(c *ginpkg.Context) {
		scoped = logger.FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	seen := make(map[string]bool)
	for range 50 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", http.NoBody))

		id := w.Header().Get(infragin.RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request id %s", id)
		}
		seen[id] = true
	}

	if scoped == nil {
		t.Fatal("no logger stored in request context")
	}
}

func TestRecoveryMiddleware_ReturnsPlainText500(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	router.Use(infragin.RecoveryMiddleware(logger.NewNop()))
	router.GET("/boom", func(*ginpkg.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := w.Body.String(); got != "Internal server error" {
		t.Errorf("body = %q", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://admin.example"},
	}))
	router.DELETE("/admin/index/:id", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{name: "allowed origin", origin: "https://admin.example", wantOrigin: "https://admin.example"},
		{name: "unknown origin", origin: "https://evil.example", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/admin/index/products", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]infragin.HealthChecker
		wantStatus int
		wantHealth infragin.HealthStatus
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantHealth: infragin.HealthStatusHealthy,
		},
		{
			name: "degraded dependency",
			checks: map[string]infragin.HealthChecker{
				"redis": infragin.PingChecker("redis", infragin.HealthStatusDegraded, func(context.Context) error {
					return errors.New("refused")
				}),
			},
			wantStatus: http.StatusOK,
			wantHealth: infragin.HealthStatusDegraded,
		},
		{
			name: "unhealthy dependency",
			checks: map[string]infragin.HealthChecker{
				"elasticsearch": infragin.PingChecker("elasticsearch", infragin.HealthStatusUnhealthy, func(context.Context) error {
					return errors.New("down")
				}),
				"mapping_store": infragin.PingChecker("mapping_store", infragin.HealthStatusUnhealthy, func(context.Context) error {
					return nil
				}),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: infragin.HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := ginpkg.New()
			infragin.RegisterHealthRoutes(router, infragin.HealthOptions{
				ServiceName:    "search-admin",
				ServiceVersion: "test",
				Checks:         tt.checks,
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp infragin.HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("health = %s, want %s", resp.Status, tt.wantHealth)
			}
			if resp.Service != "search-admin" {
				t.Errorf("service = %q", resp.Service)
			}
		})
	}
}

func TestHealthRoutes_HeadAndMemory(t *testing.T) {
	t.Parallel()

	router := ginpkg.New()
	infragin.RegisterHealthRoutes(router, infragin.HealthOptions{ServiceName: "search-admin"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/health", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("HEAD /health status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/memory", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health/memory status = %d", w.Code)
	}
	var stats infragin.MemoryStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Goroutines < 1 {
		t.Errorf("goroutines = %d", stats.Goroutines)
	}
}
