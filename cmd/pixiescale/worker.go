package main

import (
	"context"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/encoder"
	"github.com/amankumarsingh77/pixiescale/internal/server"
	"github.com/amankumarsingh77/pixiescale/internal/worker"
	workerHttp "github.com/amankumarsingh77/pixiescale/internal/worker/delivery/http"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const versionCheckTimeout = 10 * time.Second

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a transcoding worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServices(cmd, workerService)
	},
}

func workerService(ctx context.Context, rt *deps) (*service, error) {
	log := rt.log.Named("worker")
	tracker := worker.NewProgressTracker()
	engine := encoder.NewEngine(rt.cfg.FFmpeg, rt.log.Named("encoder"), encoder.WithProgress(tracker.Observe))
	if err := engine.Prepare(); err != nil {
		return nil, err
	}

	vctx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()
	ffVersion, err := engine.Version(vctx)
	if err != nil {
		return nil, errors.Wrap(err, "ffmpeg is not available")
	}
	log.Infof("Using %s", ffVersion)

	w := worker.NewWorker(rt.cfg, rt.bus, rt.emitter, engine, tracker, rt.metrics, log)
	handlers := workerHttp.NewWorkerHandler(w, engine, log)

	return &service{
		name: "worker",
		runs: []func(context.Context) error{w.Run},
		routes: []server.RouteMapper{func(v1 *echo.Group) {
			workerHttp.MapWorkerRoutes(v1.Group("/transcoding/worker"), handlers)
		}},
	}, nil
}
