package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/models"
)

// Health returns a handler for GET /api/v1/health.
func Health(cfg *config.Config, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:           "healthy",
			Uptime:           time.Since(startTime).Round(time.Second).String(),
			Version:          "0.1.0",
			ImageMirroring:   cfg.Storage.Enabled(),
			SearchConfigured: cfg.Search.APIKey != "",
		})
	}
}
