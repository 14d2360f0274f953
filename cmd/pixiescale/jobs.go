package main

import (
	"context"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	jobsEvents "github.com/amankumarsingh77/pixiescale/internal/jobs/delivery/events"
	jobsHttp "github.com/amankumarsingh77/pixiescale/internal/jobs/delivery/http"
	jobsRepository "github.com/amankumarsingh77/pixiescale/internal/jobs/repository"
	jobsUseCase "github.com/amankumarsingh77/pixiescale/internal/jobs/usecase"
	"github.com/amankumarsingh77/pixiescale/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run the job orchestrator and its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServices(cmd, jobsService)
	},
}

type jobStores struct {
	repo   jobs.Repository
	media  jobs.MediaCatalog
	locker jobs.Locker
}

func newJobStores(rt *deps) (*jobStores, error) {
	cfg := rt.cfg.Repository
	switch cfg.Driver {
	case "", "memory":
		return &jobStores{
			repo:   jobsRepository.NewMemoryJobRepo(),
			media:  jobsRepository.NewMemoryMediaCatalog(),
			locker: jobsRepository.NewMemoryLocker(),
		}, nil
	case "redis":
		ttl := time.Duration(cfg.LockTTL) * time.Second
		return &jobStores{
			repo:   jobsRepository.NewJobRedisRepo(rt.redis, cfg.KeyPrefix),
			media:  jobsRepository.NewRedisMediaCatalog(rt.redis, cfg.KeyPrefix),
			locker: jobsRepository.NewRedisLocker(rt.redis, cfg.KeyPrefix, ttl, rt.log.Named("lock")),
		}, nil
	default:
		return nil, errors.Errorf("unknown repository driver %q", cfg.Driver)
	}
}

func jobsService(ctx context.Context, rt *deps) (*service, error) {
	stores, err := newJobStores(rt)
	if err != nil {
		return nil, err
	}
	log := rt.log.Named("jobs")
	jobsUC := jobsUseCase.NewJobsUseCase(rt.cfg, stores.repo, stores.media, stores.locker, rt.emitter, rt.metrics, log)
	listener := jobsEvents.NewListener(rt.cfg, rt.bus, jobsUC, log)
	handlers := jobsHttp.NewJobsHandler(jobsUC, log)

	return &service{
		name: "jobs",
		runs: []func(context.Context) error{listener.Run},
		routes: []server.RouteMapper{func(v1 *echo.Group) {
			jobsHttp.MapJobsRoutes(v1.Group("/transcoding/jobs"), handlers)
		}},
	}, nil
}
