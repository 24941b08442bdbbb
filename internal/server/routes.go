package server

import (
	"net/http"
	"time"

	"github.com/fachebot/cross-swap-api/internal/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func RegisterRoutes(e *echo.Echo, h *Handlers, cfg config.Server) {
	e.HTTPErrorHandler = ErrorHandler(cfg.DevMode)
	e.Use(SetNoCacheHeaders)

	e.GET("/api/health", h.Health)

	api := e.Group("/api/swap")
	if cfg.ApiKey != "" {
		api.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.ApiKey, nil
			},
		}))
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit) + 1
		}
		api.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		})))
	}

	for _, path := range []string{"/approval", "/permit", "/auth"} {
		api.GET(path, h.Swap)
		api.POST(path, h.Swap)
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: "NOT_FOUND"})
	})
}
