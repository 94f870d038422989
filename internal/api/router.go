package api

import (
	"crewpilot/internal/config"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
// 限流与熔断中间件按配置启用，作用于全部路由；
// JWT 认证只保护 /api/v1 下的业务路由，/health 始终开放。
func SetupRouter(h *Handler, cfg *config.AppConfig) (*gin.Engine, error) {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := NewRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, err
		}
		r.Use(RateLimitMiddleware(limiter))
	}
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := NewCircuitBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, err
		}
		r.Use(CircuitBreakerMiddleware(breaker))
	}

	r.GET("/health", h.Health)

	// 使用 v1 版本对 API 进行分组
	apiV1 := r.Group("/api/v1")
	if cfg.Auth.Enabled {
		apiV1.Use(AuthMiddleware(cfg.Auth.JwtSecret))
	}
	{
		crews := apiV1.Group("/crews")
		{
			crews.GET("", h.ListCrews)
			// 例如: POST /api/v1/crews/building_analysis/runs
			crews.POST("/:name/runs", h.SubmitRun)
		}

		runs := apiV1.Group("/runs")
		{
			runs.GET("", h.ListRuns)
			runs.GET("/:id", h.GetRun)
		}

		apiV1.POST("/search", h.Search)
		apiV1.POST("/chat", h.Chat)
		apiV1.POST("/ingest", h.Ingest)
	}

	return r, nil
}
