package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kensaku-dev/kensaku/api/handler"
	"github.com/kensaku-dev/kensaku/api/middleware"
	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/fetcher"
	"github.com/kensaku-dev/kensaku/harvester"
	"github.com/kensaku-dev/kensaku/models"
	"github.com/kensaku-dev/kensaku/search"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS (also answers OPTIONS preflight)
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(f *fetcher.Fetcher, sc *search.Client, hv *harvester.Harvester, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	// Panics must still produce a JSON body, never a bare 500.
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "internal error",
		})
	}))
	r.Use(gin.Logger())
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(cfg, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Query — search mode or scrape mode, discriminated by the url field.
	protected.POST("/query", handler.Query(f, sc, hv, cfg.Fetch.MaxMatches, cfg.Fetch.MaxImages))

	return r
}
