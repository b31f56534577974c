package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpdav/cityflow-backend-go/internal/cache"
	"github.com/hpdav/cityflow-backend-go/internal/config"
	"github.com/hpdav/cityflow-backend-go/internal/flowsource"
	"github.com/hpdav/cityflow-backend-go/internal/logging"
	"github.com/hpdav/cityflow-backend-go/internal/middleware"
	"github.com/hpdav/cityflow-backend-go/internal/refdata"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
	"github.com/hpdav/cityflow-backend-go/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.New())
	require.NoError(t, err)
	cfg.Stream.FrameInterval = 0
	return cfg
}

func newRouter(t *testing.T, cfg *config.Config, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()
	fx, err := repository.LoadFixture(filepath.Join("..", "repository", "testdata", "fixture.yaml"))
	require.NoError(t, err)
	store := repository.NewMemoryStore(fx)
	logger := logging.Discard()
	services := service.New(service.Deps{
		Store:            store,
		Tables:           refdata.New(store, logger),
		Cache:            cache.New(logger),
		Flows:            flowsource.NewSelector(cfg.Flow.Source, store, logger),
		Logger:           logger,
		OutlierThreshold: cfg.Analysis.OutlierThreshold,
		Shards:           cfg.Analysis.Shards,
	})
	return SetupRouter(cfg, Options{Services: services, Logger: logger, Limiter: limiter})
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	r := newRouter(t, testConfig(t), nil)

	paths := []string{
		"/health",
		"/api/area-characteristics",
		"/api/traffic-patterns",
		"/api/flow-map",
		"/api/temporal-patterns",
		"/api/theme-river",
		"/api/participant-routines",
		"/api/participant-routines?participant_ids=1,2",
		"/api/parallel-coordinates",
		"/api/venues",
		"/api/cache",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			w := get(r, p, nil)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	t.Run("metrics", func(t *testing.T) {
		w := get(r, "/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "cityflow_query_cache_lookups_total")
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/flow-map", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(r, "/api/buildings", nil).Code)
	})
}

func TestAuthProtectsAPIOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "s3cret"
	r := newRouter(t, cfg, nil)

	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/venues", nil).Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "analyst",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)
	w := get(r, "/api/venues", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	r := newRouter(t, testConfig(t), middleware.PerMinute(2))

	assert.Equal(t, http.StatusOK, get(r, "/api/venues", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/venues", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/venues", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code, "health is not limited")
}
