package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/retry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	last     Message
}

func (p *flakyPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	p.last = msg
	return nil
}

var fastRetry = retry.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}

func TestEmitterRetriesThenSucceeds(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	m := metrics.New()
	e := NewEmitter(pub, fastRetry, m, logger.NewNop())

	err := e.Emit(context.Background(), "task-result", "job-1", map[string]string{"taskId": "t1"})
	require.NoError(t, err)
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, "job-1", pub.last.Key)

	var body map[string]string
	require.NoError(t, json.Unmarshal(pub.last.Payload, &body))
	assert.Equal(t, "t1", body["taskId"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("task-result", "ok")))
}

func TestEmitterGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	m := metrics.New()
	e := NewEmitter(pub, fastRetry, m, logger.NewNop())

	err := e.Emit(context.Background(), "job-updated", "job-1", struct{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPublishFailure))
	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("job-updated", "error")))
}
