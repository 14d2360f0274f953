package http

import (
	"context"
	"net/http"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/worker"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/labstack/echo/v4"
)

const versionTimeout = 5 * time.Second

// StatusSource is what the status endpoint reports on.
type StatusSource interface {
	Status() *worker.Status
}

// VersionChecker probes the encoder binary.
type VersionChecker interface {
	Version(ctx context.Context) (string, error)
}

type workerHandler struct {
	status  StatusSource
	version VersionChecker
	logger  logger.Logger
}

func NewWorkerHandler(status StatusSource, version VersionChecker, log logger.Logger) worker.Handler {
	return &workerHandler{status: status, version: version, logger: log}
}

func (h *workerHandler) GetStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, h.status.Status())
	}
}

// GetHealth answers 503 when ffmpeg cannot be run.
func (h *workerHandler) GetHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), versionTimeout)
		defer cancel()

		body := map[string]interface{}{"time": time.Now().UnixMilli()}
		version, err := h.version.Version(ctx)
		if err != nil {
			h.logger.Warnf("GetHealth - ffmpeg check failed: %v", err)
			body["status"] = "DOWN"
			body["ffmpegAvailable"] = false
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["status"] = "UP"
		body["ffmpegAvailable"] = true
		body["ffmpegVersion"] = version
		return c.JSON(http.StatusOK, body)
	}
}
