package router // package router defines how HTTP routes are registered for the API

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
)

// New builds the Echo instance with the shared middleware chain.  Request
// bodies are capped a little above maxUpload so multipart overhead fits.
func New(production bool, maxUpload int64, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(production, log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(log))
	if maxUpload > 0 {
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", (maxUpload+1<<20)/1024)))
	}
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// the health check plus metrics.
func RegisterRoutes(e *echo.Echo, checks ...func(context.Context) error) {
	e.GET("/healthz", handler.Health(checks...))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterUploads serves locally stored images under /uploads.
func RegisterUploads(e *echo.Echo, dir string) {
	e.Static("/uploads", dir)
}

// RegisterAuth registers the /api/auth routes.  Register, login and logout
// are open; logout revokes whatever bearer token it is given.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.TokenValidator) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(tokens))
}
