package middleware

import (
	"strconv"
	"time"

	"github.com/amankumarsingh77/pixiescale/pkg/utils"
	"github.com/labstack/echo/v4"
)

// RequestLoggerMiddleware logs one line per request.
func (mw *MiddlewareManager) RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		status := c.Response().Status
		mw.logger.Infof("RequestID: %s, Method: %s, URI: %s, Status: %d, Time: %s, IP: %s",
			utils.GetRequestID(c), req.Method, req.URL.Path, status, time.Since(start), utils.GetIPAddress(c))
		return nil
	}
}

// MetricsMiddleware counts requests by route template rather than raw path
// so ids do not explode the label set.
func (mw *MiddlewareManager) MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if mw.metrics == nil {
			return err
		}
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		mw.metrics.HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
		return err
	}
}
