package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/search-admin/internal/api"
	"github.com/jonesrussell/north-cloud/search-admin/internal/correlator"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
	"github.com/jonesrussell/north-cloud/search-admin/internal/mappingstore"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeIndexes records calls and returns canned results.
type fakeIndexes struct {
	mu      sync.Mutex
	calls   []string
	list    []domain.Index
	listErr error
	remove  correlator.RemoveResult
	flush   correlator.FlushResult
	opErr   error
}

func (f *fakeIndexes) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeIndexes) ListIndexes(context.Context) ([]domain.Index, error) {
	f.record("list")
	return f.list, f.listErr
}

func (f *fakeIndexes) RemoveIndex(_ context.Context, id string) (correlator.RemoveResult, error) {
	f.record("remove:" + id)
	if err := domain.ValidateIndexID(id); err != nil {
		return correlator.RemoveResult{}, err
	}
	return f.remove, f.opErr
}

func (f *fakeIndexes) FlushIndex(_ context.Context, id string) (correlator.FlushResult, error) {
	f.record("flush:" + id)
	return f.flush, f.opErr
}

type fixture struct {
	router  *gin.Engine
	indexes *fakeIndexes
	store   *mappingstore.Store
	path    string
}

func newFixture(t *testing.T, cfg api.HandlerConfig) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mappings.json")
	store := mappingstore.New(mappingstore.NewFileBackend(path), nil)
	indexes := &fakeIndexes{}

	router := gin.New()
	api.SetupRoutes(router, api.NewHandler(indexes, store, nil, cfg), testSecret)

	return &fixture{router: router, indexes: indexes, store: store, path: path}
}

func token(t *testing.T, role string) string {
	t.Helper()

	tok, err := jwt.NewManager(testSecret, 0).GenerateToken("alice", role)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, role))
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

const productsMapping = `{
	"name": "Products",
	"fields": [
		{"field": "title", "type": "string", "default_analyzer": "string_index", "sort": true, "indexable": true},
		{"field": "location", "type": "geo_point", "geopoint": true}
	],
	"dates": ["created"],
	"tag": "shop"
}`

func TestAdmin_RequiresAdminRole(t *testing.T) {
	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/admin", ""},
		{http.MethodGet, "/admin/keys", ""},
		{http.MethodGet, "/admin/indexes", ""},
		{http.MethodDelete, "/admin/index/products", ""},
		{http.MethodGet, "/admin/index/products/flush", ""},
		{http.MethodGet, "/admin/mappings", ""},
		{http.MethodGet, "/admin/mapping/products", ""},
		{http.MethodPost, "/admin/mapping/products", productsMapping},
		{http.MethodPut, "/admin/mapping/products", productsMapping},
		{http.MethodDelete, "/admin/mapping/products", ""},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			f := newFixture(t, api.HandlerConfig{})

			w := f.do(t, r.method, r.path, "editor", r.body)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "You do not have the right role.", w.Body.String())
			assert.Empty(t, f.indexes.calls, "no engine command may be issued")
			assert.NoFileExists(t, f.path, "no store write may happen")
		})
	}
}

func TestAdmin_MissingToken(t *testing.T) {
	f := newFixture(t, api.HandlerConfig{})

	w := f.do(t, http.MethodGet, "/admin", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing authorization header", w.Body.String())
}

func TestAdmin_CustomRole(t *testing.T) {
	f := newFixture(t, api.HandlerConfig{AdminRole: "operator"})

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/admin", "admin", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/admin", "operator", "").Code)
}

func TestAdmin_ProbeAndKeys(t *testing.T) {
	f := newFixture(t, api.HandlerConfig{})

	w := f.do(t, http.MethodGet, "/admin", "admin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Please see documentation about using this administration api.", w.Body.String())

	w = f.do(t, http.MethodGet, "/admin/keys", "admin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "KEYS", w.Body.String())
}

func TestListIndexes(t *testing.T) {
	tests := []struct {
		name       string
		list       []domain.Index
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "listing",
			list:       []domain.Index{{ID: "products", Name: "Products", Tag: "shop"}},
			wantStatus: http.StatusOK,
			wantBody:   `[{"index":"products","name":"Products","tag":"shop"}]`,
		},
		{
			name:       "empty",
			list:       []domain.Index{},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name:       "engine silent",
			err:        domain.ErrEngineUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "The search engine is not available.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, api.HandlerConfig{})
			f.indexes.list, f.indexes.listErr = tt.list, tt.err

			w := f.do(t, http.MethodGet, "/admin/indexes", "admin", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			} else {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRemoveIndex(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		result     correlator.RemoveResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "removed",
			path:       "/admin/index/products",
			result:     correlator.RemoveResult{Removed: true},
			wantStatus: http.StatusOK,
			wantBody:   `The index "products" have been removed from the search engine.`,
		},
		{
			name:       "engine refused",
			path:       "/admin/index/products",
			result:     correlator.RemoveResult{Error: "index_not_found_exception"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `The index "products" could not be removed.`,
		},
		{
			name:       "engine silent",
			path:       "/admin/index/products",
			err:        domain.ErrEngineUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "The search engine is not available.",
		},
		{
			name:       "invalid id",
			path:       "/admin/index/Products",
			wantStatus: http.StatusBadRequest,
			wantBody:   `Invalid index name "Products".`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, api.HandlerConfig{})
			f.indexes.remove, f.indexes.opErr = tt.result, tt.err

			w := f.do(t, http.MethodDelete, tt.path, "admin", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestFlushIndex(t *testing.T) {
	tests := []struct {
		name       string
		result     correlator.FlushResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "flushed",
			result:     correlator.FlushResult{Flushed: true, State: correlator.FlushSucceeded},
			wantStatus: http.StatusOK,
			wantBody:   `The index "products" have been flushed.`,
		},
		{
			name:       "removal failed",
			result:     correlator.FlushResult{State: correlator.FlushFailed, FailedStep: correlator.StepRemove},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `The index "products" could not be flushed.`,
		},
		{
			name:       "creation failed",
			result:     correlator.FlushResult{State: correlator.FlushFailed, FailedStep: correlator.StepCreate},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `The index "products" could not be flushed.`,
		},
		{
			name:       "engine silent",
			err:        domain.ErrEngineUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "The search engine is not available.",
		},
		{
			name:       "mismatched answer",
			err:        domain.ErrEngineFailure,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "The search engine could not complete the request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, api.HandlerConfig{})
			f.indexes.flush, f.indexes.opErr = tt.result, tt.err

			w := f.do(t, http.MethodGet, "/admin/index/products/flush", "admin", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.Equal(t, []string{"flush:products"}, f.indexes.calls)
		})
	}
}

func TestMappings_Lifecycle(t *testing.T) {
	f := newFixture(t, api.HandlerConfig{})

	w := f.do(t, http.MethodGet, "/admin/mappings", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/admin/mapping/products", "admin", productsMapping)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `Mappings for the index "products" have been created.`, w.Body.String())

	w = f.do(t, http.MethodGet, "/admin/mapping/products", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Mapping
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	var want domain.Mapping
	require.NoError(t, json.Unmarshal([]byte(productsMapping), &want))
	assert.Equal(t, want, got)

	w = f.do(t, http.MethodPost, "/admin/mapping/products", "admin", `{"name":"Other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, `The index "products" already exists in mappings configuration on the server.`, w.Body.String())
	stored, err := f.store.Get(context.Background(), "products")
	require.NoError(t, err)
	assert.Equal(t, "Products", stored.Name, "conflicting create must not change the store")

	w = f.do(t, http.MethodPut, "/admin/mapping/products", "admin", `{"name":"Renamed","tag":"shop"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `Mappings for the index "products" have been updated.`, w.Body.String())

	w = f.do(t, http.MethodGet, "/admin/mappings", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Renamed"`)

	w = f.do(t, http.MethodDelete, "/admin/mapping/products", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `Mappings for the index "products" have been removed.`, w.Body.String())

	w = f.do(t, http.MethodGet, "/admin/mapping/products", "admin", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, `The index "products" was not found in mappings configuration on the server.`, w.Body.String())
}

func TestMappings_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"update missing", http.MethodPut, "/admin/mapping/ghost", productsMapping, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/admin/mapping/ghost", "", http.StatusNotFound},
		{"invalid id", http.MethodPost, "/admin/mapping/bad*name", productsMapping, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/admin/mapping/products", `{"fields": "nope"}`, http.StatusBadRequest},
		{"duplicate field", http.MethodPost, "/admin/mapping/products",
			`{"fields":[{"field":"a"},{"field":"a"}]}`, http.StatusBadRequest},
		{"unnamed field", http.MethodPut, "/admin/mapping/products",
			`{"fields":[{"type":"string"}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, api.HandlerConfig{})

			w := f.do(t, tt.method, tt.path, "admin", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NoFileExists(t, f.path, "rejected requests must not write the store")
		})
	}
}

func TestMappings_LegacyConflictStatus(t *testing.T) {
	f := newFixture(t, api.HandlerConfig{LegacyConflictStatus: true})

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/admin/mapping/products", "admin", productsMapping).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/admin/mapping/products", "admin", productsMapping).Code)
}

func TestMappings_ConcurrentCreates(t *testing.T) {
	f := newFixture(t, api.HandlerConfig{})

	names := []string{"alpha", "beta", "gamma", "delta"}
	codes := make([]int, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = f.do(t, http.MethodPost, "/admin/mapping/"+name, "admin", productsMapping).Code
		}()
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, names[i])
	}

	doc, err := f.store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc, len(names))
}

// brokenStore fails every operation as a backend outage would.
type brokenStore struct{}

var errDiskFull = errors.New("disk full")

func (brokenStore) All(context.Context) (domain.MappingDocument, error) {
	return nil, errors.Join(domain.ErrPersistence, errDiskFull)
}

func (brokenStore) Get(context.Context, string) (domain.Mapping, error) {
	return domain.Mapping{}, errors.Join(domain.ErrPersistence, errDiskFull)
}

func (brokenStore) Create(context.Context, string, domain.Mapping) error {
	return errors.Join(domain.ErrPersistence, errDiskFull)
}

func (brokenStore) Update(context.Context, string, domain.Mapping) error {
	return errors.Join(domain.ErrPersistence, errDiskFull)
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.Join(domain.ErrPersistence, errDiskFull)
}

func TestMappings_StoreFailure(t *testing.T) {
	router := gin.New()
	api.SetupRoutes(router, api.NewHandler(&fakeIndexes{}, brokenStore{}, nil, api.HandlerConfig{}), testSecret)
	f := &fixture{router: router}

	w := f.do(t, http.MethodPost, "/admin/mapping/products", "admin", productsMapping)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Mappings file could not be updated.", w.Body.String())

	w = f.do(t, http.MethodGet, "/admin/mappings", "admin", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}

func TestPrincipalFrom(t *testing.T) {
	router := gin.New()
	h := api.NewHandler(&fakeIndexes{}, brokenStore{}, nil, api.HandlerConfig{})

	var got domain.Principal
	group := router.Group("/", jwt.Middleware(testSecret), h.RequireAdmin())
	group.GET("/whoami", func(c *gin.Context) {
		got, _ = api.PrincipalFrom(c)
		c.Status(http.StatusNoContent)
	})

	f := &fixture{router: router}
	w := f.do(t, http.MethodGet, "/whoami", "admin", "")

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, domain.Principal{Subject: "alice", Role: domain.RoleAdmin}, got)
}
