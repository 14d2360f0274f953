package middleware

import (
	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
)

type MiddlewareManager struct {
	cfg     *config.Config
	origins []string
	metrics *metrics.Metrics
	logger  logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(cfg *config.Config, origins []string, m *metrics.Metrics, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{cfg: cfg, origins: origins, metrics: m, logger: logger}
}
