package server

import (
	"net/http"

	"github.com/amankumarsingh77/pixiescale/internal/middleware"
	"github.com/amankumarsingh77/pixiescale/pkg/utils"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) MapHandlers(e *echo.Echo) {
	mw := middleware.NewMiddlewareManager(s.cfg, []string{"*"}, s.metrics, s.logger)

	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	e.Use(mw.CORS())
	e.Use(mw.MetricsMiddleware)
	e.Use(mw.RequestLoggerMiddleware)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		e.GET(s.cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1")
	v1.GET("/health", func(c echo.Context) error {
		s.logger.Debugf("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK", "version": s.cfg.Server.AppVersion})
	})
	for _, mount := range s.routes {
		mount(v1)
	}
}
