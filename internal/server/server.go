package server

import (
	"context"
	"net/http"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	maxHeaderBytes = 1 << 20
	ctxTimeout     = 5
)

// RouteMapper mounts one service's routes on the /api/v1 group.
type RouteMapper func(v1 *echo.Group)

type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  logger.Logger
	routes  []RouteMapper
}

func NewServer(cfg *config.Config, m *metrics.Metrics, logger logger.Logger, routes ...RouteMapper) *Server {
	s := &Server{
		echo:    echo.New(),
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		routes:  routes,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.MapHandlers(s.echo)
	return s
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:           s.cfg.Server.Port,
		Handler:        s.echo,
		ReadTimeout:    time.Second * time.Duration(s.cfg.Server.ReadTimeout),
		WriteTimeout:   time.Second * time.Duration(s.cfg.Server.WriteTimeout),
		MaxHeaderBytes: maxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server is listening on PORT: %s", s.cfg.Server.Port)
		errCh <- s.echo.StartServer(server)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "start server")
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.CtxTimeout
	if timeout <= 0 {
		timeout = ctxTimeout
	}
	shutdownCtx, shutdown := context.WithTimeout(context.Background(), time.Second*time.Duration(timeout))
	defer shutdown()
	s.logger.Infof("shutting down server")
	return server.Shutdown(shutdownCtx)
}
