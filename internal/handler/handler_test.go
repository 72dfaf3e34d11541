package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/repository/repotest"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

type app struct {
	e         *echo.Echo
	products  *repotest.Products
	uploadDir string
}

func newApp(t *testing.T, production bool) app {
	t.Helper()
	log, _ := test.NewNullLogger()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	tokens := service.NewTokenService("secret", 2*time.Hour, repotest.NewLedger(), log)
	auth := service.NewAuthService(repotest.NewUsers(), tokens,
		config.AdminConfig{Username: "root", PasswordHash: string(hash)}, bcrypt.MinCost, log)

	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir, "http://shop.test")
	require.NoError(t, err)
	products := repotest.NewProducts()
	catalog := service.NewCatalogService(products, storage.NewPipeline(backend, 1024, log), nil, log)

	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(production, log)
	ah := NewAuthHandler(auth)
	ph := NewProductHandler(catalog)
	e.POST("/api/auth/register", ah.Register)
	e.POST("/api/auth/login", ah.Login)
	e.POST("/api/auth/logout", ah.Logout)
	e.GET("/api/auth/me", ah.Me, middleware.JWTAuth(tokens))
	e.GET("/api/products", ph.List)
	e.GET("/api/products/:id", ph.Get)
	admin := e.Group("/api/products", middleware.JWTAuth(tokens), middleware.RequireAdmin())
	admin.POST("", ph.Create)
	admin.PUT("/:id", ph.Update)
	admin.DELETE("/:id", ph.Delete)
	e.GET("/boom", func(c echo.Context) error { return service.Internal("kaboom", errors.New("db: connection refused")) })
	return app{e: e, products: products, uploadDir: dir}
}

func (a app) do(t *testing.T, req *http.Request, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func jsonReq(method, target string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartReq(t *testing.T, method, target string, fields map[string]string, mimeType string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="pic.png"`)
		h.Set("Content-Type", mimeType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func (a app) adminToken(t *testing.T) string {
	rec, body := a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "admin-pass"}), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["is_admin"])
	return body["token"].(string)
}

func TestAuthEndpoints(t *testing.T) {
	a := newApp(t, false)

	rec, body := a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "email": "alice@example.com", "password": "secret1"}), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["token"])

	rec, body = a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "email": "x@example.com", "password": "secret1"}), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username already taken", body["error"])

	rec, _ = a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{"username": "bob", "email": "bad", "password": "secret1"}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret1"}), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["is_admin"])
	token := body["token"].(string)

	rec, body = a.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["username"])

	rec, _ = a.do(t, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong1"}), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = a.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged out", body["message"])

	rec, _ = a.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductLifecycle(t *testing.T) {
	a := newApp(t, false)
	token := a.adminToken(t)
	png := []byte("\x89PNG fake")

	rec, body := a.do(t, multipartReq(t, http.MethodPost, "/api/products",
		map[string]string{"name": "Shoe", "price": "12.50", "category": "shoes", "subcategory": "running"}, "image/png", png), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := body["id"].(string)
	url := body["image_url"].(string)
	assert.True(t, strings.HasPrefix(url, "http://shop.test/uploads/image-"), url)
	assert.NotContains(t, body, "image_handle")
	assert.Equal(t, 12.5, body["price"])

	rec, body = a.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Shoe", body["name"])

	rec, body = a.do(t, jsonReq(http.MethodPut, "/api/products/"+id, map[string]any{"price": 15}), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 15.0, body["price"])
	assert.Equal(t, "Shoe", body["name"])

	rec, body = a.do(t, multipartReq(t, http.MethodPut, "/api/products/"+id, map[string]string{"name": "Boot", "price": ""}, "image/png", png), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Boot", body["name"])
	assert.Equal(t, 15.0, body["price"])

	rec, _ = a.do(t, httptest.NewRequest(http.MethodGet, "/api/products?category=shoes", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec, body = a.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "product removed", body["message"])

	entries, err := os.ReadDir(a.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	rec, _ = a.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil), token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProductErrors(t *testing.T) {
	a := newApp(t, false)
	token := a.adminToken(t)
	fields := map[string]string{"name": "Shoe", "price": "1", "category": "shoes"}

	rec, body := a.do(t, multipartReq(t, http.MethodPost, "/api/products", fields, "", nil), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "image file is required", body["error"])

	rec, _ = a.do(t, multipartReq(t, http.MethodPost, "/api/products", fields, "image/gif", []byte("GIF89a")), token)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec, _ = a.do(t, multipartReq(t, http.MethodPost, "/api/products", fields, "image/png", bytes.Repeat([]byte("x"), 1025)), token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Zero(t, a.products.Len())
}

func TestProductMutationsRequireAdmin(t *testing.T) {
	a := newApp(t, false)
	rec, body := a.do(t, jsonReq(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "email": "alice@example.com", "password": "secret1"}), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	userToken := body["token"].(string)

	req := multipartReq(t, http.MethodPost, "/api/products", map[string]string{"name": "n", "price": "1", "category": "c"}, "image/png", []byte("x"))
	rec, _ = a.do(t, req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = multipartReq(t, http.MethodPost, "/api/products", map[string]string{"name": "n", "price": "1", "category": "c"}, "image/png", []byte("x"))
	rec, _ = a.do(t, req, userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, a.products.Len())
}

func TestErrorDetailHiddenInProduction(t *testing.T) {
	for _, prod := range []bool{false, true} {
		t.Run(fmt.Sprintf("production=%v", prod), func(t *testing.T) {
			a := newApp(t, prod)
			rec, body := a.do(t, httptest.NewRequest(http.MethodGet, "/boom", nil), "")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "kaboom", body["error"])
			_, hasDetail := body["detail"]
			assert.Equal(t, !prod, hasDetail)
		})
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[service.Kind]int{
		service.KindBadRequest:      400,
		service.KindUnauthorized:    401,
		service.KindForbidden:       403,
		service.KindConflict:        409,
		service.KindNotFound:        404,
		service.KindUnsupportedType: 415,
		service.KindTooLarge:        413,
		service.KindUpstreamFailure: 502,
		service.KindInternal:        500,
	}
	for k, want := range cases {
		assert.Equal(t, want, statusOf(k), k.String())
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(func(ctx context.Context) error { return nil }))
	e.GET("/down", Health(func(ctx context.Context) error { return errors.New("no db") }))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
