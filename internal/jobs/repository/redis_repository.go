package repository

import (
	"context"
	"encoding/json"

	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// jobRedisRepo keeps each job as one JSON document:
//
//	{prefix}job:{jobId}           job document
//	{prefix}task:{taskId}         owning job id
//	{prefix}media:{mediaId}:jobs  set of job ids
type jobRedisRepo struct {
	redisClient *redis.Client
	prefix      string
}

func NewJobRedisRepo(redisClient *redis.Client, prefix string) jobs.Repository {
	return &jobRedisRepo{
		redisClient: redisClient,
		prefix:      prefix,
	}
}

func (r *jobRedisRepo) jobKey(jobID string) string {
	return r.prefix + "job:" + jobID
}

func (r *jobRedisRepo) taskKey(taskID string) string {
	return r.prefix + "task:" + taskID
}

func (r *jobRedisRepo) mediaKey(mediaID string) string {
	return r.prefix + "media:" + mediaID + ":jobs"
}

func (r *jobRedisRepo) SaveJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrapf(err, "marshal job %s", job.ID)
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.jobKey(job.ID), data, 0)
		for _, t := range job.Tasks {
			pipe.Set(ctx, r.taskKey(t.ID), job.ID, 0)
		}
		pipe.SAdd(ctx, r.mediaKey(job.MediaFileID), job.ID)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "save job %s", job.ID)
	}
	return nil
}

func (r *jobRedisRepo) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	data, err := r.redisClient.Get(ctx, r.jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFound("job %s", jobID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", jobID)
	}
	job := &models.Job{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, errors.Wrapf(err, "unmarshal job %s", jobID)
	}
	return job, nil
}

func (r *jobRedisRepo) GetJobsByMediaID(ctx context.Context, mediaID string) ([]*models.Job, error) {
	ids, err := r.redisClient.SMembers(ctx, r.mediaKey(mediaID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "list jobs of media %s", mediaID)
	}
	out := make([]*models.Job, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.jobKey(id)
	}
	values, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "load jobs of media %s", mediaID)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		job := &models.Job{}
		if err := json.Unmarshal([]byte(s), job); err != nil {
			return nil, errors.Wrapf(err, "unmarshal job %s", ids[i])
		}
		out = append(out, job)
	}
	return out, nil
}

func (r *jobRedisRepo) FindJobIDByTaskID(ctx context.Context, taskID string) (string, error) {
	jobID, err := r.redisClient.Get(ctx, r.taskKey(taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.NotFound("task %s", taskID)
	}
	if err != nil {
		return "", errors.Wrapf(err, "find job of task %s", taskID)
	}
	return jobID, nil
}
