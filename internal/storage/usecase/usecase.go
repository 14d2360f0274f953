package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
)

type storageUC struct {
	store   storage.BlobStore
	metrics *metrics.Metrics
	logger  logger.Logger
}

func NewStorageUseCase(store storage.BlobStore, m *metrics.Metrics, log logger.Logger) storage.UseCase {
	return &storageUC{store: store, metrics: m, logger: log}
}

// Finalize moves the encoder output to "{jobId}/{taskId}{ext}". The local
// file is removed whatever the outcome.
func (u *storageUC) Finalize(ctx context.Context, ev *models.TaskResultEvent) *models.StorageResultEvent {
	if ev.Status != models.JobStatusCompleted {
		return nil
	}
	if ev.OutputPath != "" {
		defer func() {
			if err := os.Remove(ev.OutputPath); err != nil && !os.IsNotExist(err) {
				u.logger.Warnf("remove local output %s: %v", ev.OutputPath, err)
			}
		}()
	}

	res := u.persist(ctx, ev)
	if u.metrics != nil {
		u.metrics.StorageResults.WithLabelValues(strconv.FormatBool(res.Success)).Inc()
	}
	return res
}

func (u *storageUC) persist(ctx context.Context, ev *models.TaskResultEvent) *models.StorageResultEvent {
	res := &models.StorageResultEvent{TaskID: ev.TaskID, JobID: ev.JobID}
	if ev.OutputPath == "" {
		res.ErrorMessage = "output path is empty"
		return res
	}
	if info, err := os.Stat(ev.OutputPath); err != nil || info.IsDir() {
		res.ErrorMessage = "output file not found: " + ev.OutputPath
		u.logger.Errorf("Task %s of job %s: %s", ev.TaskID, ev.JobID, res.ErrorMessage)
		return res
	}

	key := ev.JobID + "/" + ev.TaskID + filepath.Ext(ev.OutputPath)
	contentType := storage.ContentType(ev.OutputPath)
	path, err := u.store.Put(ctx, key, ev.OutputPath, contentType)
	if err != nil {
		res.ErrorMessage = err.Error()
		u.logger.Errorf("Task %s of job %s: %v", ev.TaskID, ev.JobID, err)
		return res
	}

	u.logger.Infof("Stored output of task %s at %s", ev.TaskID, path)
	res.Success = true
	res.StoragePath = path
	res.ContentType = contentType
	return res
}

func (u *storageUC) Open(ctx context.Context, key string) (*storage.Object, error) {
	return u.store.Open(ctx, key)
}

func (u *storageUC) Delete(ctx context.Context, key string) error {
	return u.store.Delete(ctx, key)
}
