package models

import "time"

type MediaUploadedEvent struct {
	MediaID     string         `json:"mediaId"`
	FileName    string         `json:"fileName"`
	ContentType string         `json:"contentType"`
	FileSize    int64          `json:"fileSize"`
	StoragePath string         `json:"storagePath"`
	Metadata    *MediaMetadata `json:"metadata,omitempty"`
}

func (e *MediaUploadedEvent) MediaFile(now time.Time) *MediaFile {
	return &MediaFile{
		ID:          e.MediaID,
		FileName:    e.FileName,
		ContentType: e.ContentType,
		FileSize:    e.FileSize,
		StoragePath: e.StoragePath,
		Metadata:    e.Metadata,
		UploadedAt:  now,
	}
}

// JobEvent is published on job-created and job-updated. Config is only set on
// job-created.
type JobEvent struct {
	JobID       string             `json:"jobId"`
	MediaFileID string             `json:"mediaFileId"`
	Status      JobStatus          `json:"status"`
	Config      *TranscodingConfig `json:"config,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

type TranscodingTaskEvent struct {
	TaskID        string `json:"taskId"`
	JobID         string `json:"jobId"`
	MediaFileID   string `json:"mediaFileId,omitempty"`
	TargetFormat  string `json:"targetFormat"`
	TargetWidth   int    `json:"targetWidth"`
	TargetHeight  int    `json:"targetHeight"`
	TargetBitrate int    `json:"targetBitrate"`
}

func NewTranscodingTaskEvent(job *Job, t *Task) *TranscodingTaskEvent {
	return &TranscodingTaskEvent{
		TaskID:        t.ID,
		JobID:         job.ID,
		MediaFileID:   job.MediaFileID,
		TargetFormat:  t.TargetFormat,
		TargetWidth:   t.TargetWidth,
		TargetHeight:  t.TargetHeight,
		TargetBitrate: t.TargetBitrate,
	}
}

// Task builds the worker-side task, already started.
func (e *TranscodingTaskEvent) Task(now time.Time) *Task {
	t := &Task{
		ID:            e.TaskID,
		JobID:         e.JobID,
		MediaFileID:   e.MediaFileID,
		TargetFormat:  e.TargetFormat,
		TargetWidth:   e.TargetWidth,
		TargetHeight:  e.TargetHeight,
		TargetBitrate: e.TargetBitrate,
	}
	t.Start(now)
	return t
}

type TaskResultEvent struct {
	TaskID       string     `json:"taskId"`
	JobID        string     `json:"jobId"`
	Status       TaskStatus `json:"status"`
	OutputPath   string     `json:"outputPath,omitempty"`
	CompletedAt  time.Time  `json:"completedAt"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

type StorageResultEvent struct {
	TaskID       string `json:"taskId"`
	JobID        string `json:"jobId"`
	StoragePath  string `json:"storagePath,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type TaskCancelEvent struct {
	TaskID    string    `json:"taskId"`
	JobID     string    `json:"jobId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
