package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-match/internal/shared/config"
	"resume-match/internal/shared/server/middleware"
	"resume-match/internal/shared/server/respond"
)

// RouteRegistrar attaches routes to an API group. analyzeLimit guards the
// analysis submission route.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup, analyzeLimit ...gin.HandlerFunc)
}

// GroupRegistrar attaches routes that do not need a client id.
type GroupRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config     config.Config
	App        RouteRegistrar
	GoogleAuth GroupRegistrar
	Metrics    gin.HandlerFunc
	// Ready reports backing store health; nil means always ready.
	Ready       func(ctx context.Context) error
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	if deps.App != nil {
		clientAPI := api.Group("")
		clientAPI.Use(middleware.ClientID())
		analyzeLimit := middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": middleware.PerMinute(deps.Config.AnalyzeRatePerMin),
			},
		})
		deps.App.RegisterRoutes(clientAPI, analyzeLimit)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
