// Package worker consumes transcoding tasks and reports their results.
package worker

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/encoder"
	"github.com/amankumarsingh77/pixiescale/internal/events"
	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type running struct {
	task      *models.Task
	cancel    context.CancelFunc
	cancelled bool
}

// Worker runs at most MaxConcurrentTasks encodes. Each dispatch message is
// acknowledged only after its result is published, so a worker that dies
// mid-encode leaves the task for another instance.
type Worker struct {
	cfg      *config.Config
	bus      events.Subscriber
	emitter  *events.Emitter
	encoder  Encoder
	progress *ProgressTracker
	metrics  *metrics.Metrics
	logger   logger.Logger

	sem       chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	mu        sync.Mutex
	running   map[string]*running
	cancelled map[string]time.Time
}

func NewWorker(
	cfg *config.Config,
	bus events.Subscriber,
	emitter *events.Emitter,
	enc Encoder,
	progress *ProgressTracker,
	m *metrics.Metrics,
	log logger.Logger,
) *Worker {
	size := cfg.Worker.MaxConcurrentTasks
	if size <= 0 {
		size = 2
	}
	if progress == nil {
		progress = NewProgressTracker()
	}
	return &Worker{
		cfg:       cfg,
		bus:       bus,
		emitter:   emitter,
		encoder:   enc,
		progress:  progress,
		metrics:   m,
		logger:    log,
		sem:       make(chan struct{}, size),
		startTime: time.Now(),
		running:   make(map[string]*running),
		cancelled: make(map[string]time.Time),
	}
}

// Run consumes until ctx is done and then waits for in-flight encodes, which
// are killed by the same cancellation.
func (w *Worker) Run(ctx context.Context) error {
	topics, group := w.cfg.Broker.Topics, w.cfg.Broker.Groups.Worker
	w.logger.Infof("Starting worker %s with %d slots", w.cfg.Worker.InstanceID, cap(w.sem))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.bus.Subscribe(gctx, topics.TranscodingTask, group, w.onTask, events.ManualAck())
	})
	g.Go(func() error {
		return w.bus.Subscribe(gctx, topics.TaskCancel, group, w.onCancel, events.Broadcast())
	})
	err := g.Wait()
	w.wg.Wait()
	w.logger.Info("Worker stopped")
	return err
}

// onTask blocks while every slot is busy, which holds back the
// subscription.
func (w *Worker) onTask(ctx context.Context, d *events.Delivery) error {
	ev := &models.TranscodingTaskEvent{}
	if err := d.Decode(ev); err != nil || ev.TaskID == "" {
		w.logger.Errorf("discarding undecodable task message key=%s: %v", d.Key, err)
		w.ack(d)
		return nil
	}
	if w.metrics != nil {
		w.metrics.TasksReceived.Inc()
	}
	task := ev.Task(time.Now().UTC())

	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.sem }()
		w.process(ctx, task, d)
	}()
	return nil
}

func (w *Worker) process(ctx context.Context, task *models.Task, d *events.Delivery) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result *models.TaskResultEvent
	if !w.begin(task, cancel) {
		w.logger.Infof("Task %s of job %s was cancelled before it started", task.ID, task.JobID)
		result = w.failure(task, TaskCancelled, "cancelled")
	} else {
		output, err := w.encode(taskCtx, task)
		wasCancelled := w.end(task.ID)
		switch {
		case ctx.Err() != nil:
			if output != "" {
				os.Remove(output)
			}
			w.logger.Warnf("Task %s interrupted by shutdown, leaving it for redelivery", task.ID)
			return
		case wasCancelled:
			if output != "" {
				os.Remove(output)
			}
			result = w.failure(task, TaskCancelled, "cancelled")
		case err != nil:
			w.logger.Errorf("Task %s failed: %v", task.ID, err)
			result = w.failure(task, err.Error(), failureReason(err))
		default:
			if w.metrics != nil {
				w.metrics.TasksCompleted.Inc()
			}
			w.logger.Infof("Task %s encoded to %s", task.ID, output)
			result = &models.TaskResultEvent{
				TaskID:      task.ID,
				JobID:       task.JobID,
				Status:      models.JobStatusCompleted,
				OutputPath:  output,
				CompletedAt: time.Now().UTC(),
			}
		}
	}

	if err := w.emitter.Emit(ctx, w.cfg.Broker.Topics.TaskResult, task.JobID, result); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Errorf("Task %s result lost after retries: %v", task.ID, err)
	}
	w.ack(d)
}

func (w *Worker) encode(ctx context.Context, task *models.Task) (string, error) {
	if w.metrics != nil {
		w.metrics.TasksActive.Inc()
		defer w.metrics.TasksActive.Dec()
	}
	defer w.progress.Forget(task.ID)

	start := time.Now()
	output, err := w.encoder.Encode(ctx, task)
	if w.metrics != nil {
		w.metrics.TaskDuration.Observe(time.Since(start).Seconds())
	}
	return output, err
}

func (w *Worker) failure(task *models.Task, msg, reason string) *models.TaskResultEvent {
	if w.metrics != nil {
		w.metrics.TasksFailed.WithLabelValues(reason).Inc()
	}
	return &models.TaskResultEvent{
		TaskID:       task.ID,
		JobID:        task.JobID,
		Status:       models.JobStatusFailed,
		ErrorMessage: msg,
		CompletedAt:  time.Now().UTC(),
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	case errors.Is(err, apperrors.ErrNotFound):
		return "source_not_found"
	case errors.Is(err, apperrors.ErrEncodeFailure):
		return "encode"
	default:
		return "other"
	}
}

// ack uses its own context so results published during shutdown are still
// acknowledged.
func (w *Worker) ack(d *events.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	if err := d.Ack(ctx); err != nil {
		w.logger.Errorf("ack %s key=%s: %v", d.Topic, d.Key, err)
	}
}

// begin registers a task as running. It reports false when a cancel for the
// task arrived before it started.
func (w *Worker) begin(task *models.Task, cancel context.CancelFunc) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.cancelled[task.ID]; ok {
		delete(w.cancelled, task.ID)
		return false
	}
	w.running[task.ID] = &running{task: task, cancel: cancel}
	return true
}

// end unregisters a task and reports whether it was cancelled while running.
func (w *Worker) end(taskID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.running[taskID]
	delete(w.running, taskID)
	return ok && r.cancelled
}

func (w *Worker) onCancel(ctx context.Context, d *events.Delivery) error {
	ev := &models.TaskCancelEvent{}
	if err := d.Decode(ev); err != nil || ev.TaskID == "" {
		w.logger.Errorf("discarding undecodable cancel message key=%s: %v", d.Key, err)
		return nil
	}
	w.Cancel(ev.TaskID)
	return nil
}

// Cancel stops the task's encode if it runs here, or remembers the task so a
// later dispatch fails it without encoding.
func (w *Worker) Cancel(taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.running[taskID]; ok {
		w.logger.Infof("Cancelling running task %s", taskID)
		r.cancelled = true
		r.cancel()
		return
	}
	now := time.Now()
	for id, at := range w.cancelled {
		if now.Sub(at) > cancelRetention {
			delete(w.cancelled, id)
		}
	}
	w.cancelled[taskID] = now
}

func (w *Worker) ActiveTasks() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.running)
}

func (w *Worker) Status() *Status {
	w.mu.Lock()
	list := make([]RunningTask, 0, len(w.running))
	for _, r := range w.running {
		rt := RunningTask{
			TaskID:     r.task.ID,
			JobID:      r.task.JobID,
			Resolution: r.task.Resolution(),
			Format:     encoder.ParseFormat(r.task.TargetFormat).String(),
		}
		if r.task.StartedAt != nil {
			rt.StartedAt = *r.task.StartedAt
		}
		if p, ok := w.progress.Get(r.task.ID); ok {
			p := p
			rt.Progress = &p
		}
		list = append(list, rt)
	}
	w.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].StartedAt.Before(list[j].StartedAt) })

	ff := w.cfg.FFmpeg
	cpuOK, _ := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage)
	return &Status{
		WorkerID:           w.cfg.Worker.InstanceID,
		ActiveTasks:        len(list),
		MaxConcurrentTasks: cap(w.sem),
		Running:            list,
		FFmpeg: FFmpegStatus{
			BinaryPath:      ff.BinaryPath,
			GPUAcceleration: ff.GPUAcceleration,
			GPUDevice:       ff.GPUDevice,
			TimeoutSeconds:  ff.TimeoutSeconds,
		},
		System:       utils.GetSystemStats(),
		CPUAvailable: cpuOK,
		StartTime:    w.startTime,
		Uptime:       time.Since(w.startTime).Round(time.Second).String(),
	}
}
