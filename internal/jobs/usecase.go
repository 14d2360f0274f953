package jobs

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/models"
)

// UseCase owns job state. Every mutation of a job happens under its lock.
type UseCase interface {
	CreateJob(ctx context.Context, req *models.TranscodingJobRequest) (*models.Job, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetJobsByMediaID(ctx context.Context, mediaID string) ([]*models.Job, error)
	CancelJob(ctx context.Context, jobID string) (*models.Job, error)

	RegisterMedia(ctx context.Context, ev *models.MediaUploadedEvent) error
	HandleTaskResult(ctx context.Context, ev *models.TaskResultEvent) error
	HandleStorageResult(ctx context.Context, ev *models.StorageResultEvent) error
}
