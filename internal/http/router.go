package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"brashlens-backend/internal/common/middleware"
	"brashlens-backend/internal/domain/testrecord"
	"brashlens-backend/internal/metrics"
)

// Options carries everything the router mounts.
type Options struct {
	Debug          bool
	AllowedOrigins []string

	BotToken    string
	InitDataTTL time.Duration

	RateLimitEnabled   bool
	RateLimitPerMinute int64

	Users       UserService
	DB          DBChecker
	Cache       KeyValueCache
	Tasks       TaskQueue
	TestRecords testrecord.Repository
	Metrics     *metrics.Registry
}

// NewRouter builds the gin engine with middleware, probes and /api/v1 routes.
func NewRouter(opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if opts.Metrics != nil {
		router.Use(opts.Metrics.GinMiddleware())
	}
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	router.Use(middleware.ErrorHandler())

	NewHealthHandler(opts.DB, opts.Cache).RegisterRoutes(router)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	if opts.RateLimitEnabled && opts.RateLimitPerMinute > 0 {
		v1.Use(middleware.RateLimit(opts.RateLimitPerMinute))
	}
	v1.Use(middleware.TelegramInitData(opts.BotToken, opts.InitDataTTL))

	NewHealthHandler(opts.DB, opts.Cache).RegisterRoutes(v1)
	NewUserHandler(opts.Users).RegisterRoutes(v1)
	NewCacheHandler(opts.Cache).RegisterRoutes(v1)
	NewTaskHandler(opts.Tasks).RegisterRoutes(v1)
	NewTestRecordHandler(opts.TestRecords).RegisterRoutes(v1)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Content-Type", "Authorization", "Accept",
		middleware.RequestIDHeader, middleware.InitDataHeader}
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	return cfg
}
