package main

import (
	"context"
	"os"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/events"
	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/internal/server"
	redisConn "github.com/amankumarsingh77/pixiescale/pkg/db/redis"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/retry"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// deps holds what every service in the process shares.
type deps struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics
	redis   *redis.Client
	bus     events.Bus
	emitter *events.Emitter
}

type service struct {
	name   string
	runs   []func(ctx context.Context) error
	routes []server.RouteMapper
}

type serviceBuilder func(ctx context.Context, rt *deps) (*service, error)

func newDeps(ctx context.Context, cfg *config.Config, log logger.Logger) (*deps, func(), error) {
	if cfg.Worker.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "pixiescale"
		}
		cfg.Worker.InstanceID = host + "-" + uuid.New().String()[:8]
	}

	rt := &deps{cfg: cfg, log: log, metrics: metrics.New()}
	cleanup := func() {
		if rt.bus != nil {
			if err := rt.bus.Close(); err != nil {
				log.Errorf("close bus: %v", err)
			}
		}
		if rt.redis != nil {
			if err := rt.redis.Close(); err != nil {
				log.Errorf("close redis: %v", err)
			}
		}
	}

	if redisConn.NeedsRedis(cfg) {
		client, err := redisConn.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, cleanup, err
		}
		log.Infof("redis connected at %s", cfg.Redis.RedisAddr)
		rt.redis = client
	}

	bus, err := events.NewBus(cfg, rt.redis, cfg.Worker.InstanceID, log.Named("events"))
	if err != nil {
		return nil, cleanup, err
	}
	log.Infof("event bus driver: %s", cfg.Broker.Driver)
	rt.bus = bus
	rt.emitter = events.NewEmitter(bus, retry.FromPublishConfig(cfg.Publish), rt.metrics, log.Named("events"))
	return rt, cleanup, nil
}

// serve builds the requested services on one set of deps and runs their bus
// consumers next to a single HTTP server until ctx is done or one fails.
func serve(ctx context.Context, cfg *config.Config, log logger.Logger, builders ...serviceBuilder) error {
	rt, cleanup, err := newDeps(ctx, cfg, log)
	defer cleanup()
	if err != nil {
		return err
	}

	services := make([]*service, 0, len(builders))
	var routes []server.RouteMapper
	for _, build := range builders {
		svc, err := build(ctx, rt)
		if err != nil {
			return err
		}
		services = append(services, svc)
		routes = append(routes, svc.routes...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		log.Infof("starting %s service", svc.name)
		for _, run := range svc.runs {
			g.Go(func() error { return run(gctx) })
		}
	}

	srv := server.NewServer(cfg, rt.metrics, log.Named("http"), routes...)
	g.Go(func() error { return srv.Run(gctx) })
	return g.Wait()
}
