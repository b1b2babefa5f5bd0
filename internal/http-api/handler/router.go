package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"mangatrack/internal/config"
	"mangatrack/internal/http-api/middleware"
	"mangatrack/internal/store"
)

// NewRouter wires the admin API: /healthz stays open, /api/v1 is rate
// limited per client and, when JWT_SECRET is set, needs a bearer token.
func NewRouter(cfg *config.Config, s store.Store, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	h := NewRecordHandler(s, logger)
	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	api.Use(middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst).Middleware())
	if cfg.AuthEnabled() {
		api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	} else {
		logger.Warn("api_auth_disabled", "reason", "JWT_SECRET is not set")
	}
	h.RegisterRoutes(api)

	return r
}
