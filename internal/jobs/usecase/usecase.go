package usecase

import (
	"context"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/events"
	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultTaskFailure    = "task failed"
	defaultStorageFailure = "storage failed"
)

type jobsUC struct {
	topics  config.TopicsConfig
	repo    jobs.Repository
	media   jobs.MediaCatalog
	locker  jobs.Locker
	emitter *events.Emitter
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time
}

func NewJobsUseCase(
	cfg *config.Config,
	repo jobs.Repository,
	media jobs.MediaCatalog,
	locker jobs.Locker,
	emitter *events.Emitter,
	m *metrics.Metrics,
	log logger.Logger,
) jobs.UseCase {
	return &jobsUC{
		topics:  cfg.Broker.Topics,
		repo:    repo,
		media:   media,
		locker:  locker,
		emitter: emitter,
		metrics: m,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (u *jobsUC) CreateJob(ctx context.Context, req *models.TranscodingJobRequest) (*models.Job, error) {
	if req == nil {
		return nil, apperrors.BadRequest("empty job request")
	}
	utils.FillPresetDefaults(req.Config.Resolutions)
	if err := utils.ValidateStruct(ctx, req); err != nil {
		u.logger.Warnf("CreateJob - ValidateStruct error: %v", err)
		return nil, apperrors.BadRequest("invalid job request: %v", err)
	}
	if _, err := u.media.GetMedia(ctx, req.MediaFileID); err != nil {
		u.logger.Warnf("CreateJob - GetMedia %s: %v", req.MediaFileID, err)
		return nil, err
	}
	// The job is accepted from here on; a client hanging up must not leave it
	// half dispatched.
	ctx = context.WithoutCancel(ctx)

	now := u.now()
	job := &models.Job{
		ID:          models.NewJobID(req.MediaFileID),
		MediaFileID: req.MediaFileID,
		Status:      models.JobStatusPending,
		Config:      req.Config,
		CreatedAt:   now,
	}
	format := req.Config.Format()
	for _, preset := range req.Config.Resolutions {
		job.Tasks = append(job.Tasks, &models.Task{
			ID:            uuid.New().String(),
			JobID:         job.ID,
			MediaFileID:   job.MediaFileID,
			TargetFormat:  format,
			TargetWidth:   preset.Width,
			TargetHeight:  preset.Height,
			TargetBitrate: preset.Bitrate,
			Status:        models.JobStatusPending,
		})
	}

	if err := u.saveNewJob(ctx, job); err != nil {
		return nil, err
	}
	if u.metrics != nil {
		u.metrics.JobsCreated.Inc()
	}
	cfg := job.Config
	u.emitJobEvent(ctx, u.topics.JobCreated, job, &cfg)

	var started bool
	job, err := u.withJob(ctx, job.ID, func(j *models.Job) bool {
		if j.Status != models.JobStatusPending {
			return false
		}
		j.Status = models.JobStatusProcessing
		j.StartedAt = &now
		started = true
		return true
	})
	if err != nil {
		u.logger.Errorf("CreateJob - start job: %v", err)
		return nil, err
	}
	if !started {
		// Cancelled before the first dispatch.
		return job, nil
	}
	u.emitJobEvent(ctx, u.topics.JobUpdated, job, nil)

	// Dispatch runs unlocked so results for early tasks can land meanwhile.
	dispatchErrs := make(map[string]error, len(job.Tasks))
	for _, task := range job.Tasks {
		err := u.emitter.Emit(ctx, u.topics.TranscodingTask, job.ID, models.NewTranscodingTaskEvent(job, task))
		if err != nil {
			u.logger.Errorf("CreateJob - dispatch task %s of job %s: %v", task.ID, job.ID, err)
		}
		dispatchErrs[task.ID] = err
	}

	var changed bool
	job, err = u.withJob(ctx, job.ID, func(j *models.Job) bool {
		at := u.now()
		for _, task := range j.Tasks {
			if task.Status != models.JobStatusPending {
				continue
			}
			if err := dispatchErrs[task.ID]; err != nil {
				task.Fail("dispatch failed: "+err.Error(), at)
				continue
			}
			task.Start(now)
		}
		changed = j.Aggregate(at)
		return true
	})
	if err != nil {
		u.logger.Errorf("CreateJob - record dispatch: %v", err)
		return nil, err
	}
	if changed {
		u.jobChanged(ctx, job)
	}
	u.logger.Infof("Created job %s for media %s with %d tasks", job.ID, job.MediaFileID, len(job.Tasks))
	return job, nil
}

func (u *jobsUC) saveNewJob(ctx context.Context, job *models.Job) error {
	unlock, err := u.locker.Lock(ctx, job.ID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := u.repo.SaveJob(ctx, job); err != nil {
		u.logger.Errorf("CreateJob - SaveJob error: %v", err)
		return err
	}
	return nil
}

// withJob reloads the job under its lock and saves it when mutate reports a
// change. The returned job is a copy safe to use after the lock is gone.
func (u *jobsUC) withJob(ctx context.Context, jobID string, mutate func(*models.Job) bool) (*models.Job, error) {
	unlock, err := u.locker.Lock(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := u.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if mutate(job) {
		if err := u.repo.SaveJob(ctx, job); err != nil {
			return nil, errors.Wrapf(err, "save job %s", jobID)
		}
	}
	return job.Clone(), nil
}

func (u *jobsUC) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return u.repo.GetJob(ctx, jobID)
}

func (u *jobsUC) GetJobsByMediaID(ctx context.Context, mediaID string) ([]*models.Job, error) {
	return u.repo.GetJobsByMediaID(ctx, mediaID)
}

func (u *jobsUC) CancelJob(ctx context.Context, jobID string) (*models.Job, error) {
	unlock, err := u.locker.Lock(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := u.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, apperrors.Conflict("job %s is already %s", jobID, job.Status)
	}

	now := u.now()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = models.CancelledByUser
	job.CompletedAt = &now
	if err := u.repo.SaveJob(ctx, job); err != nil {
		u.logger.Errorf("CancelJob - SaveJob error: %v", err)
		return nil, err
	}
	u.jobChanged(ctx, job)

	for _, task := range job.Tasks {
		if task.Status.IsTerminal() {
			continue
		}
		ev := &models.TaskCancelEvent{
			TaskID:    task.ID,
			JobID:     job.ID,
			Reason:    models.CancelledByUser,
			Timestamp: now,
		}
		if err := u.emitter.Emit(ctx, u.topics.TaskCancel, job.ID, ev); err != nil {
			u.logger.Errorf("CancelJob - cancel task %s: %v", task.ID, err)
		}
	}
	u.logger.Infof("Cancelled job %s", job.ID)
	return job.Clone(), nil
}

func (u *jobsUC) RegisterMedia(ctx context.Context, ev *models.MediaUploadedEvent) error {
	if ev == nil || ev.MediaID == "" {
		return apperrors.BadRequest("media-uploaded event without media id")
	}
	if err := u.media.PutMedia(ctx, ev.MediaFile(u.now())); err != nil {
		return err
	}
	u.logger.Infof("Registered media %s (%s)", ev.MediaID, ev.FileName)
	return nil
}

func (u *jobsUC) HandleTaskResult(ctx context.Context, ev *models.TaskResultEvent) error {
	return u.updateTask(ctx, ev.JobID, ev.TaskID, func(task *models.Task, now time.Time) bool {
		if task.Status.IsTerminal() {
			u.logger.Debugf("HandleTaskResult - task %s already %s", task.ID, task.Status)
			return false
		}
		at := now
		if !ev.CompletedAt.IsZero() {
			at = ev.CompletedAt.UTC()
		}
		switch ev.Status {
		case models.JobStatusCompleted:
			task.Complete(ev.OutputPath, at)
		case models.JobStatusFailed:
			msg := ev.ErrorMessage
			if msg == "" {
				msg = defaultTaskFailure
			}
			task.Fail(msg, at)
		default:
			u.logger.Warnf("HandleTaskResult - task %s: unexpected status %q", task.ID, ev.Status)
			return false
		}
		return true
	})
}

// HandleStorageResult also accepts a storage result that overtakes its task
// result: a stored output is proof the encode completed.
func (u *jobsUC) HandleStorageResult(ctx context.Context, ev *models.StorageResultEvent) error {
	return u.updateTask(ctx, ev.JobID, ev.TaskID, func(task *models.Task, now time.Time) bool {
		if task.StoragePath != "" {
			return false
		}
		if ev.Success {
			switch {
			case task.Status == models.JobStatusFailed:
				u.logger.Warnf("HandleStorageResult - task %s stored after it failed", task.ID)
				return false
			case !task.Status.IsTerminal():
				task.Complete(ev.StoragePath, now)
			}
			task.StoragePath = ev.StoragePath
			task.ContentType = ev.ContentType
			task.OutputPath = ev.StoragePath
			return true
		}
		if task.Status == models.JobStatusFailed {
			return false
		}
		msg := defaultStorageFailure
		if ev.ErrorMessage != "" {
			msg += ": " + ev.ErrorMessage
		}
		task.Fail(msg, now)
		return true
	})
}

// updateTask runs mutate under the job lock and re-aggregates the job when
// mutate reports a change.
func (u *jobsUC) updateTask(ctx context.Context, jobID, taskID string, mutate func(*models.Task, time.Time) bool) error {
	jobID, err := u.locateJob(ctx, jobID, taskID)
	if err != nil {
		return err
	}

	unlock, err := u.locker.Lock(ctx, jobID)
	if err != nil {
		return err
	}
	defer unlock()

	job, err := u.repo.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	task := job.Task(taskID)
	if task == nil {
		return apperrors.NotFound("task %s in job %s", taskID, jobID)
	}

	now := u.now()
	if !mutate(task, now) {
		return nil
	}
	changed := job.Aggregate(now)
	if err := u.repo.SaveJob(ctx, job); err != nil {
		return errors.Wrapf(err, "save job %s", jobID)
	}
	u.logger.Infof("Task %s of job %s is %s", task.ID, job.ID, task.Status)
	if changed {
		u.jobChanged(ctx, job)
	}
	return nil
}

// locateJob prefers the job id carried by the message and falls back to the
// task index.
func (u *jobsUC) locateJob(ctx context.Context, jobID, taskID string) (string, error) {
	if jobID != "" {
		job, err := u.repo.GetJob(ctx, jobID)
		if err == nil && job.Task(taskID) != nil {
			return jobID, nil
		}
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return "", err
		}
	}
	return u.repo.FindJobIDByTaskID(ctx, taskID)
}

func (u *jobsUC) jobChanged(ctx context.Context, job *models.Job) {
	if job.Status.IsTerminal() && u.metrics != nil {
		u.metrics.JobsTerminal.WithLabelValues(string(job.Status)).Inc()
	}
	u.logger.Infof("Job %s is %s", job.ID, job.Status)
	u.emitJobEvent(ctx, u.topics.JobUpdated, job, nil)
}

func (u *jobsUC) emitJobEvent(ctx context.Context, topic string, job *models.Job, cfg *models.TranscodingConfig) {
	ev := &models.JobEvent{
		JobID:       job.ID,
		MediaFileID: job.MediaFileID,
		Status:      job.Status,
		Config:      cfg,
		Timestamp:   u.now(),
	}
	if err := u.emitter.Emit(ctx, topic, job.ID, ev); err != nil {
		u.logger.Errorf("publish %s for job %s: %v", topic, job.ID, err)
	}
}
