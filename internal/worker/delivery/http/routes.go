package http

import (
	"github.com/amankumarsingh77/pixiescale/internal/worker"
	"github.com/labstack/echo/v4"
)

func MapWorkerRoutes(workerGroup *echo.Group, h worker.Handler) {
	workerGroup.GET("/status", h.GetStatus())
	workerGroup.GET("/health", h.GetHealth())
}
