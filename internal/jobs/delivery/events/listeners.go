package events

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/events"
	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Listener feeds the jobs use case from the bus. Handler errors are logged
// and the message is acknowledged: a result that cannot be applied now will
// not apply on redelivery either.
type Listener struct {
	topics config.TopicsConfig
	group  string
	bus    events.Subscriber
	jobsUC jobs.UseCase
	logger logger.Logger
}

func NewListener(cfg *config.Config, bus events.Subscriber, jobsUC jobs.UseCase, log logger.Logger) *Listener {
	return &Listener{
		topics: cfg.Broker.Topics,
		group:  cfg.Broker.Groups.Jobs,
		bus:    bus,
		jobsUC: jobsUC,
		logger: log,
	}
}

// Run consumes until ctx is done or a subscription fails.
func (l *Listener) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.bus.Subscribe(ctx, l.topics.MediaUploaded, l.group, l.onMediaUploaded)
	})
	g.Go(func() error {
		return l.bus.Subscribe(ctx, l.topics.TaskResult, l.group, l.onTaskResult)
	})
	g.Go(func() error {
		return l.bus.Subscribe(ctx, l.topics.StorageResult, l.group, l.onStorageResult)
	})
	return g.Wait()
}

func (l *Listener) onMediaUploaded(ctx context.Context, d *events.Delivery) error {
	ev := &models.MediaUploadedEvent{}
	if err := d.Decode(ev); err != nil {
		l.logger.Errorf("discarding undecodable %s message key=%s: %v", d.Topic, d.Key, err)
		return nil
	}
	return l.jobsUC.RegisterMedia(ctx, ev)
}

func (l *Listener) onTaskResult(ctx context.Context, d *events.Delivery) error {
	ev := &models.TaskResultEvent{}
	if err := d.Decode(ev); err != nil {
		l.logger.Errorf("discarding undecodable %s message key=%s: %v", d.Topic, d.Key, err)
		return nil
	}
	return l.jobsUC.HandleTaskResult(ctx, ev)
}

func (l *Listener) onStorageResult(ctx context.Context, d *events.Delivery) error {
	ev := &models.StorageResultEvent{}
	if err := d.Decode(ev); err != nil {
		l.logger.Errorf("discarding undecodable %s message key=%s: %v", d.Topic, d.Key, err)
		return nil
	}
	return l.jobsUC.HandleStorageResult(ctx, ev)
}
