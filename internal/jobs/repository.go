package jobs

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/models"
)

// Repository stores jobs with their tasks. Implementations hand out copies;
// a job is only changed through SaveJob.
type Repository interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetJobsByMediaID(ctx context.Context, mediaID string) ([]*models.Job, error)
	FindJobIDByTaskID(ctx context.Context, taskID string) (string, error)
}
