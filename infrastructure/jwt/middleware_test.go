package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/jwt"
)

const testSecret = "test-secret-key-32-chars-minimum"

func TestManager_RoundTrip(t *testing.T) {
	t.Helper()

	mgr := jwt.NewManager(testSecret, time.Hour)

	token, err := mgr.GenerateToken("ops@example", "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Sub != "ops@example" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestManager_ValidateToken_Rejects(t *testing.T) {
	t.Helper()

	valid, err := jwt.NewManager("another-secret", time.Hour).GenerateToken("x", "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	expired, err := jwt.NewManager(testSecret, -time.Minute).GenerateToken("x", "admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", valid},
		{"expired", expired},
		{"garbage", "not.a.token"},
	}

	mgr := jwt.NewManager(testSecret, time.Hour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, validateErr := mgr.ValidateToken(tt.token); validateErr == nil {
				t.Error("ValidateToken() expected error")
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	token, err := jwt.NewManager(testSecret, time.Hour).GenerateToken("ops", "reader")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantRole   string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK, wantRole: "reader"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			var gotRole string
			router.GET("/admin", jwt.Middleware(testSecret), func(c *gin.Context) {
				if claims, ok := jwt.GetClaims(c); ok {
					gotRole = claims.Role
				}
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotRole != tt.wantRole {
				t.Errorf("role = %q, want %q", gotRole, tt.wantRole)
			}
		})
	}
}
