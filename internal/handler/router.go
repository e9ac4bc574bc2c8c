package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/middleware"
)

// RouterConfig holds everything the HTTP router is assembled from
type RouterConfig struct {
	Compare *CompareHandler
	NAV     *NAVHandler

	// Cache is optional; nil disables response caching
	Cache       middleware.ResponseCache
	CacheTTL    time.Duration
	CachePrefix string

	// Metrics is optional; nil disables /metrics
	Metrics *middleware.HTTPMetrics

	JWTSecret         string
	RequestsPerMinute int
	Burst             int

	Logger *zap.Logger
}

// NewRouter builds the gin engine serving the comparison API
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.CORS())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.Use(middleware.RateLimit(cfg.RequestsPerMinute, cfg.Burst))

	cache := middleware.RedisCache(cfg.Cache, middleware.CacheConfig{
		Enabled:         cfg.Cache != nil,
		DefaultDuration: cfg.CacheTTL,
		PrefixKey:       cfg.CachePrefix,
	}, cfg.Logger)

	api := router.Group("/api")
	{
		api.GET("/health", Health)

		// Snapshot URLs are handed out to image tags, so they stay public
		api.GET("/index-compare/chart/snapshots/:id", cfg.Compare.GetSnapshot)

		protected := api.Group("")
		protected.Use(middleware.JWTAuth(cfg.JWTSecret, cfg.Logger))
		{
			protected.GET("/indices", cfg.Compare.ListInstruments)
			protected.GET("/index-compare", cache, cfg.Compare.GetComparison)
			protected.GET("/index-compare/chart", cfg.Compare.GetChart)
			protected.POST("/index-compare/chart/snapshots", cfg.Compare.CreateSnapshot)
			protected.GET("/etf-nav", cache, cfg.NAV.GetNAV)
		}
	}

	return router
}
