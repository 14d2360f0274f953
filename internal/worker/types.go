package worker

import (
	"context"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/encoder"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/utils"
)

const (
	// TaskCancelled is the error message reported for a cancelled task.
	TaskCancelled = "task cancelled"

	cancelRetention = time.Hour
	ackTimeout      = 5 * time.Second
)

// Encoder turns one task into a local output file.
type Encoder interface {
	Encode(ctx context.Context, task *models.Task) (string, error)
}

type RunningTask struct {
	TaskID     string            `json:"taskId"`
	JobID      string            `json:"jobId"`
	Resolution string            `json:"resolution"`
	Format     string            `json:"format"`
	StartedAt  time.Time         `json:"startedAt"`
	Progress   *encoder.Progress `json:"progress,omitempty"`
}

type FFmpegStatus struct {
	BinaryPath      string `json:"binaryPath"`
	GPUAcceleration bool   `json:"gpuAcceleration"`
	GPUDevice       string `json:"gpuDevice"`
	TimeoutSeconds  int    `json:"timeoutSeconds"`
}

type Status struct {
	WorkerID           string            `json:"workerId"`
	ActiveTasks        int               `json:"activeTasks"`
	MaxConcurrentTasks int               `json:"maxConcurrentTasks"`
	Running            []RunningTask     `json:"running"`
	FFmpeg             FFmpegStatus      `json:"ffmpeg"`
	System             utils.SystemStats `json:"system"`
	CPUAvailable       bool              `json:"cpuAvailable"`
	StartTime          time.Time         `json:"startTime"`
	Uptime             string            `json:"uptime"`
}
