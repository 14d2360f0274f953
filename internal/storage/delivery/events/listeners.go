package events

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/events"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
)

// Listener finalizes task outputs as their results arrive.
type Listener struct {
	cfg       *config.Config
	bus       events.Subscriber
	emitter   *events.Emitter
	storageUC storage.UseCase
	logger    logger.Logger
}

func NewListener(cfg *config.Config, bus events.Subscriber, emitter *events.Emitter, storageUC storage.UseCase, log logger.Logger) *Listener {
	return &Listener{cfg: cfg, bus: bus, emitter: emitter, storageUC: storageUC, logger: log}
}

func (l *Listener) Run(ctx context.Context) error {
	return l.bus.Subscribe(ctx, l.cfg.Broker.Topics.TaskResult, l.cfg.Broker.Groups.Storage, l.onTaskResult)
}

func (l *Listener) onTaskResult(ctx context.Context, d *events.Delivery) error {
	ev := &models.TaskResultEvent{}
	if err := d.Decode(ev); err != nil {
		l.logger.Errorf("discarding undecodable %s message key=%s: %v", d.Topic, d.Key, err)
		return nil
	}
	res := l.storageUC.Finalize(ctx, ev)
	if res == nil {
		return nil
	}
	if err := l.emitter.Emit(ctx, l.cfg.Broker.Topics.StorageResult, res.JobID, res); err != nil {
		l.logger.Errorf("storage result of task %s lost: %v", res.TaskID, err)
	}
	return nil
}
