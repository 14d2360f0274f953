package repository

import (
	"context"
	"sync"

	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
)

type memoryJobRepo struct {
	mu        sync.RWMutex
	jobs      map[string]*models.Job
	taskIndex map[string]string
}

func NewMemoryJobRepo() jobs.Repository {
	return &memoryJobRepo{
		jobs:      make(map[string]*models.Job),
		taskIndex: make(map[string]string),
	}
}

func (r *memoryJobRepo) SaveJob(ctx context.Context, job *models.Job) error {
	stored := job.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = stored
	for _, t := range stored.Tasks {
		r.taskIndex[t.ID] = job.ID
	}
	return nil
}

func (r *memoryJobRepo) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, apperrors.NotFound("job %s", jobID)
	}
	return job.Clone(), nil
}

func (r *memoryJobRepo) GetJobsByMediaID(ctx context.Context, mediaID string) ([]*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Job, 0)
	for _, job := range r.jobs {
		if job.MediaFileID == mediaID {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (r *memoryJobRepo) FindJobIDByTaskID(ctx context.Context, taskID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobID, ok := r.taskIndex[taskID]
	if !ok {
		return "", apperrors.NotFound("task %s", taskID)
	}
	return jobID, nil
}
