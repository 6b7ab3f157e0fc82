package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/signal-community/apply-service/internal/handlers"
	"github.com/signal-community/apply-service/internal/models"
)

// Pinger is the readiness dependency; nil means the service has no archive
// DB and is ready whenever the process is up.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires public endpoints.
// Public: /health, /ready, POST /api/apply
func NewRouter(deps handlers.ApplyDeps, archive Pinger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Panics anywhere in the pipeline become a generic 500 with no
	// internal detail leaked.
	r.Use(gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		deps.Log.Error("unexpected panic in request handler", zap.Any("panic", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Internal server error",
			Message: "Please try again later or contact support if the issue persists.",
		})
	}))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the archive dependency is reachable when configured.
	r.GET("/ready", func(c *gin.Context) {
		if archive == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready", "archive": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := archive.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterApplyRoutes(r, deps)

	return r
}
