package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []TaskStatus{JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed}

// tuples returns every combination of statuses of length n.
func tuples(n int) [][]TaskStatus {
	if n == 0 {
		return [][]TaskStatus{{}}
	}
	var out [][]TaskStatus
	for _, prefix := range tuples(n - 1) {
		for _, s := range allStatuses {
			next := append(append([]TaskStatus(nil), prefix...), s)
			out = append(out, next)
		}
	}
	return out
}

func TestDeriveJobStatusAllTuples(t *testing.T) {
	for n := 1; n <= 3; n++ {
		for _, tasks := range tuples(n) {
			allCompleted, anyFailed, anyProcessing := true, false, false
			for _, s := range tasks {
				allCompleted = allCompleted && s == JobStatusCompleted
				anyFailed = anyFailed || s == JobStatusFailed
				anyProcessing = anyProcessing || s == JobStatusProcessing
			}
			want := JobStatusProcessing
			if allCompleted {
				want = JobStatusCompleted
			} else if anyFailed && !anyProcessing {
				want = JobStatusFailed
			}
			assert.Equal(t, want, DeriveJobStatus(JobStatusProcessing, tasks), "tasks=%v", tasks)
		}
	}
}

func TestDeriveJobStatusTerminalIsSticky(t *testing.T) {
	for _, current := range []JobStatus{JobStatusCompleted, JobStatusFailed} {
		for _, tasks := range tuples(2) {
			assert.Equal(t, current, DeriveJobStatus(current, tasks))
		}
	}
}

func TestAggregateSetsCompletedAtOnce(t *testing.T) {
	job := &Job{
		Status: JobStatusProcessing,
		Tasks: []*Task{
			{ID: "a", Status: JobStatusCompleted},
			{ID: "b", Status: JobStatusProcessing},
		},
	}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, job.Aggregate(t0))
	assert.Nil(t, job.CompletedAt)

	job.Tasks[1].Status = JobStatusCompleted
	assert.True(t, job.Aggregate(t0.Add(time.Minute)))
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, t0.Add(time.Minute), *job.CompletedAt)

	assert.False(t, job.Aggregate(t0.Add(time.Hour)))
	assert.Equal(t, t0.Add(time.Minute), *job.CompletedAt)
}

func TestAggregateFailedMessage(t *testing.T) {
	job := &Job{
		Status: JobStatusProcessing,
		Tasks: []*Task{
			{ID: "a", Status: JobStatusFailed, ErrorMessage: "exit 1"},
			{ID: "b", Status: JobStatusCompleted},
		},
	}
	assert.True(t, job.Aggregate(time.Now()))
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, TasksFailedReason, job.ErrorMessage)
	assert.NotNil(t, job.CompletedAt)
}

func TestMediaIDFromJobID(t *testing.T) {
	assert.Equal(t, "m1", MediaIDFromJobID("m1-7d1c2a4e-0000-4000-8000-000000000000"))
	assert.Equal(t, "m1", MediaIDFromJobID(NewJobID("m1")))
	assert.Equal(t, "plain", MediaIDFromJobID("plain"))
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	job := &Job{
		ID:        "j",
		StartedAt: &now,
		Config:    TranscodingConfig{Resolutions: []ResolutionPreset{{Name: "720p"}}},
		Tasks:     []*Task{{ID: "a", Status: JobStatusProcessing}},
	}
	c := job.Clone()
	c.Tasks[0].Status = JobStatusFailed
	c.Config.Resolutions[0].Name = "480p"
	*c.StartedAt = now.Add(time.Hour)

	assert.Equal(t, JobStatusProcessing, job.Tasks[0].Status)
	assert.Equal(t, "720p", job.Config.Resolutions[0].Name)
	assert.Equal(t, now, *job.StartedAt)
}

func TestNewJobResponse(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &Job{
		ID:          "m1-x",
		MediaFileID: "m1",
		Status:      JobStatusProcessing,
		CreatedAt:   created,
		StartedAt:   &created,
		Tasks: []*Task{
			{ID: "a", Status: JobStatusCompleted},
			{ID: "b", Status: JobStatusFailed, ErrorMessage: "boom"},
		},
	}
	resp := NewJobResponse(job)
	assert.Equal(t, 2, resp.TotalTasks)
	assert.Equal(t, 1, resp.CompletedTasks)
	assert.Equal(t, "2024-03-01T12:00:00Z", resp.CreatedAt)
	assert.Equal(t, "2024-03-01T12:00:00Z", resp.StartedAt)
	assert.Empty(t, resp.CompletedAt)
	assert.Empty(t, resp.ErrorMessage)
}
