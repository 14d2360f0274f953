package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// TaskStatus shares the job status lattice.
type TaskStatus = JobStatus

const (
	CancelledByUser   = "cancelled by user"
	TasksFailedReason = "one or more tasks failed"
)

type Job struct {
	ID           string            `json:"id"`
	MediaFileID  string            `json:"mediaFileId"`
	Status       JobStatus         `json:"status"`
	Config       TranscodingConfig `json:"config"`
	Tasks        []*Task           `json:"tasks"`
	CreatedAt    time.Time         `json:"createdAt"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// NewJobID embeds the media id so workers can recover it without a lookup.
func NewJobID(mediaFileID string) string {
	return mediaFileID + "-" + uuid.New().String()
}

// MediaIDFromJobID returns the part of a job id before its first separator.
func MediaIDFromJobID(jobID string) string {
	mediaID, _, _ := strings.Cut(jobID, "-")
	return mediaID
}

func (j *Job) Task(taskID string) *Task {
	for _, t := range j.Tasks {
		if t.ID == taskID {
			return t
		}
	}
	return nil
}

func (j *Job) CompletedTasks() int {
	n := 0
	for _, t := range j.Tasks {
		if t.Status == JobStatusCompleted {
			n++
		}
	}
	return n
}

func (j *Job) TaskStatuses() []TaskStatus {
	statuses := make([]TaskStatus, len(j.Tasks))
	for i, t := range j.Tasks {
		statuses[i] = t.Status
	}
	return statuses
}

// Aggregate recomputes the job status from its tasks and reports whether it
// changed. A terminal job is never changed.
func (j *Job) Aggregate(now time.Time) bool {
	next := DeriveJobStatus(j.Status, j.TaskStatuses())
	if next == j.Status {
		return false
	}
	j.Status = next
	if next.IsTerminal() && j.CompletedAt == nil {
		j.CompletedAt = &now
	}
	if next == JobStatusFailed {
		j.ErrorMessage = TasksFailedReason
	}
	return true
}

// DeriveJobStatus applies the aggregation rules to a set of task statuses.
func DeriveJobStatus(current JobStatus, tasks []TaskStatus) JobStatus {
	if current.IsTerminal() {
		return current
	}
	allCompleted, anyFailed, anyProcessing := true, false, false
	for _, s := range tasks {
		switch s {
		case JobStatusCompleted:
		case JobStatusFailed:
			anyFailed = true
			allCompleted = false
		case JobStatusProcessing:
			anyProcessing = true
			allCompleted = false
		default:
			allCompleted = false
		}
	}
	switch {
	case allCompleted:
		return JobStatusCompleted
	case anyFailed && !anyProcessing:
		return JobStatusFailed
	default:
		return current
	}
}

// Clone returns a deep copy so readers never share state with writers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.Config.Resolutions = append([]ResolutionPreset(nil), j.Config.Resolutions...)
	c.Tasks = make([]*Task, len(j.Tasks))
	for i, t := range j.Tasks {
		c.Tasks[i] = t.Clone()
	}
	return &c
}

type Task struct {
	ID            string     `json:"id"`
	JobID         string     `json:"jobId"`
	MediaFileID   string     `json:"mediaFileId,omitempty"`
	TargetFormat  string     `json:"targetFormat"`
	TargetWidth   int        `json:"targetWidth"`
	TargetHeight  int        `json:"targetHeight"`
	TargetBitrate int        `json:"targetBitrate"`
	Status        TaskStatus `json:"status"`
	OutputPath    string     `json:"outputPath,omitempty"`
	StoragePath   string     `json:"storagePath,omitempty"`
	ContentType   string     `json:"contentType,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

func (t *Task) Start(now time.Time) {
	t.Status = JobStatusProcessing
	t.StartedAt = &now
}

func (t *Task) Complete(outputPath string, now time.Time) {
	t.Status = JobStatusCompleted
	t.OutputPath = outputPath
	t.ErrorMessage = ""
	t.CompletedAt = &now
}

func (t *Task) Fail(msg string, now time.Time) {
	t.Status = JobStatusFailed
	t.OutputPath = ""
	t.ErrorMessage = msg
	t.CompletedAt = &now
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

// Resolution formats the task target as WxH.
func (t *Task) Resolution() string {
	return fmt.Sprintf("%dx%d", t.TargetWidth, t.TargetHeight)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
