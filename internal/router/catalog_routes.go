package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
)

// RegisterCatalog registers /api/products.  Reads are public and cached in
// Redis when rdb is set; writes need an admin token and purge the cache.
func RegisterCatalog(e *echo.Echo, p *handler.ProductHandler, tokens middleware.TokenValidator, cacheCfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) {
	read := e.Group("/api/products", middleware.NewRedisCache(cacheCfg, rdb))
	read.GET("", p.List)
	read.GET("/:id", p.Get)

	write := e.Group("/api/products",
		middleware.JWTAuth(tokens),
		middleware.RequireAdmin(),
		middleware.InvalidateCache(cacheCfg, rdb, log),
	)
	write.POST("", p.Create)
	write.PUT("/:id", p.Update)
	write.DELETE("/:id", p.Delete)
}
