package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	e      *echo.Echo
	c      config.Server
	closed chan struct{}
}

func NewServer(c config.Server, quoter Quoter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger())

	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = c.RequestTimeout + 15*time.Second
	e.Server.IdleTimeout = 60 * time.Second

	RegisterRoutes(e, NewHandlers(quoter, c.RequestTimeout), c)
	return &Server{e: e, c: c, closed: make(chan struct{})}
}

// Handler exposes the router for in-process callers.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start() error {
	logger.Infof("[Server] 开始监听, addr: %s", s.c.Addr)
	err := s.e.Start(s.c.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.closed)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debugf("[Server] %s %s, status: %d, latency: %s", v.Method, v.URIPath, v.Status, v.Latency)
			return nil
		},
	})
}

func SetNoCacheHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}
