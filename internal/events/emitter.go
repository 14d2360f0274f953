package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/retry"
	"github.com/pkg/errors"
)

// Emitter publishes JSON events, retrying with backoff. What happens after
// the last attempt fails is up to the caller.
type Emitter struct {
	pub     Publisher
	retry   retry.Config
	metrics *metrics.Metrics
	logger  logger.Logger
}

func NewEmitter(pub Publisher, cfg retry.Config, m *metrics.Metrics, log logger.Logger) *Emitter {
	return &Emitter{pub: pub, retry: cfg, metrics: m, logger: log}
}

// Emit returns an error wrapping apperrors.ErrPublishFailure when every
// attempt failed.
func (e *Emitter) Emit(ctx context.Context, topic, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", topic)
	}
	msg := Message{Topic: topic, Key: key, Payload: payload, Timestamp: time.Now()}

	attempt := 0
	err = retry.Do(ctx, e.retry, func() error {
		attempt++
		if err := e.pub.Publish(ctx, msg); err != nil {
			e.logger.Warnf("Emit - publish %s key=%s attempt %d: %v", topic, key, attempt, err)
			return err
		}
		return nil
	})
	if err != nil {
		e.observe(topic, "error")
		return errors.Wrapf(apperrors.ErrPublishFailure, "topic %s: %v", topic, err)
	}
	e.observe(topic, "ok")
	return nil
}

func (e *Emitter) observe(topic, result string) {
	if e.metrics != nil {
		e.metrics.EventsPublished.WithLabelValues(topic, result).Inc()
	}
}
