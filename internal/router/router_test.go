package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/repository/repotest"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

func newServer(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	log, _ := test.NewNullLogger()
	dir := t.TempDir()

	tokens := service.NewTokenService("secret", time.Hour, repotest.NewLedger(), log)
	auth := service.NewAuthService(repotest.NewUsers(), tokens, config.AdminConfig{Username: "root"}, 4, log)
	backend, err := storage.NewLocalBackend(dir, "http://shop.test")
	require.NoError(t, err)
	catalog := service.NewCatalogService(repotest.NewProducts(), storage.NewPipeline(backend, 1<<20, log), nil, log)

	e := New(false, 1<<20, log)
	RegisterRoutes(e, func(context.Context) error { return nil })
	RegisterUploads(e, dir)
	RegisterAuth(e, handler.NewAuthHandler(auth), tokens)
	RegisterCatalog(e, handler.NewProductHandler(catalog), tokens, config.CacheConfig{}, nil, log)
	return e, dir
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	e, _ := newServer(t)

	rec := get(e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	get(e, "/api/products")
	rec = get(e, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_http_requests_total")
}

func TestUploadsAreServed(t *testing.T) {
	e, dir := newServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image-1.png"), []byte("png"), 0o644))

	rec := get(e, "/uploads/image-1.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	e, _ := newServer(t)

	rec := get(e, "/api/products")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = get(e, "/api/products/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"product not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	e, _ := newServer(t)
	rec := get(e, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}
