package delivery

import (
	"time"

	"marketgo/internal/delivery/middleware"
	"marketgo/pkg/logger"
	"marketgo/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type HTTPRouter struct {
	handlers *HTTPHandlers
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics) *HTTPRouter {
	return &HTTPRouter{
		handlers: handlers,
		logger:   logger,
		metrics:  metrics,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Timeout(60 * time.Second))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// Report generation and persistence
	router.POST("/generate-report", r.handlers.GenerateReport)
	router.GET("/campaigns", r.handlers.GetCampaigns)
	router.GET("/campaigns/:id", r.handlers.GetCampaign)
	router.GET("/reports", r.handlers.GetReports)
	router.POST("/audience-insights", r.handlers.AudienceInsights)

	// Runtime credential management
	credentials := router.Group("/credentials")
	{
		credentials.POST("/google-ads", r.handlers.SetGoogleCredentials)
		credentials.POST("/meta-ads", r.handlers.SetMetaCredentials)
	}

	// Cross-platform advertising API
	v1 := router.Group("/api/v1")
	{
		ads := v1.Group("/ads")
		{
			ads.GET("/status", r.handlers.AdsStatus)
			ads.GET("/campaigns", r.handlers.AdsCampaigns)
			ads.GET("/performance", r.handlers.AdsPerformance)
			ads.GET("/insights", r.handlers.AdsInsights)
			ads.GET("/accounts", r.handlers.AdsAccounts)
			ads.POST("/campaigns", r.handlers.CreateAdCampaign)
			ads.POST("/campaigns/:id/budget", r.handlers.UpdateAdBudget)
			ads.POST("/campaigns/:id/pause", r.handlers.PauseAdCampaign)
			ads.POST("/campaigns/:id/resume", r.handlers.ResumeAdCampaign)
		}
	}

	// Frontend compatibility alias for the connection status check
	router.GET("/ads/status", r.handlers.AdsStatus)

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	return router
}
