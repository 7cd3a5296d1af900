package server

import (
	"context"
	"net/http"
	"time"

	"github.com/abduss/cloudbin/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 5 * time.Second

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "component": "store"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			logger.FromContext(c).Warn("readiness check failed",
				zap.String("component", deps.Config.Storage.Backend),
				zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"component": deps.Config.Storage.Backend,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": deps.Config.Storage.Backend})
	})
}
