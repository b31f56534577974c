package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hpdav/cityflow-backend-go/internal/config"
	"github.com/hpdav/cityflow-backend-go/internal/handler"
	"github.com/hpdav/cityflow-backend-go/internal/middleware"
	"github.com/hpdav/cityflow-backend-go/internal/service"
)

// Options carries what the router needs besides configuration.
type Options struct {
	Services *service.Services
	Logger   logrus.FieldLogger
	Limiter  *middleware.RateLimiter // nil disables rate limiting
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(opts.Logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	system := handler.NewSystemHandler(opts.Services.Status)
	aggregations := handler.NewAggregationHandler(opts.Services)
	stream := handler.NewStreamHandler(opts.Services.Flow, cfg.Stream.FrameInterval, opts.Logger)

	// 健康检查
	r.GET("/health", system.Health)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api", middleware.RateLimit(opts.Limiter), middleware.JWTAuth(cfg.Auth.JWTSecret))
	{
		api.GET("/area-characteristics", aggregations.GetAreaCharacteristics)
		api.GET("/traffic-patterns", aggregations.GetTrafficPatterns)
		api.GET("/flow-map", aggregations.GetFlowMap)
		api.GET("/flow-map/stream", stream.StreamFlowMap)
		api.GET("/temporal-patterns", aggregations.GetTemporalPatterns)
		api.GET("/theme-river", aggregations.GetThemeRiver)
		api.GET("/participant-routines", aggregations.GetParticipantRoutines)
		api.GET("/parallel-coordinates", aggregations.GetParallelCoordinates)
		api.GET("/venues", aggregations.GetVenues)
		api.GET("/cache", system.GetCache)
	}

	return r
}
