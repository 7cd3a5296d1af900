package server

import (
	"github.com/abduss/cloudbin/internal/auth"
	"github.com/abduss/cloudbin/internal/config"
	"github.com/abduss/cloudbin/internal/drive"
	"github.com/abduss/cloudbin/internal/logger"
	"github.com/abduss/cloudbin/internal/metrics"
	"github.com/abduss/cloudbin/internal/ratelimit"
	"github.com/abduss/cloudbin/internal/record"
	"github.com/gin-gonic/gin"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config       config.Config
	Store        record.Store
	AuthService  *auth.Service
	DriveService *drive.Service
	AuthLimiter  *ratelimit.Limiter
	DriveLimiter *ratelimit.Limiter
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	metrics.InitMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(securityHeaders(deps.Config.Auth.CookieSecure))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/api")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService, deps.AuthLimiter)

		if deps.DriveService != nil {
			drive.RegisterRoutes(api, deps.DriveService, deps.AuthService, deps.DriveLimiter)
		}
	}

	return router
}

func securityHeaders(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		if hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
