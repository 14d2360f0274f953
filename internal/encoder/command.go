package encoder

import (
	"fmt"
	"strconv"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/models"
)

// BuildArgs assembles the ffmpeg argument list for one task.
func BuildArgs(cfg config.FFmpegConfig, task *models.Task, input, output string) []string {
	format := ParseFormat(task.TargetFormat)

	args := []string{"-threads", strconv.Itoa(cfg.ThreadCount)}
	if cfg.GPUAcceleration {
		args = append(args, "-hwaccel", "cuda", "-hwaccel_device", cfg.GPUDevice)
	}
	args = append(args,
		"-analyzeduration", strconv.Itoa(cfg.AnalyzeDuration),
		"-probesize", fmt.Sprintf("%dM", cfg.BufferSize),
		"-thread_queue_size", strconv.Itoa(cfg.ThreadQueueSize),
		"-i", input,
	)

	args = append(args, format.videoArgs(cfg)...)

	bitrate := task.TargetBitrate
	args = append(args,
		"-s", task.Resolution(),
		"-b:v", fmt.Sprintf("%dk", bitrate),
		"-maxrate", fmt.Sprintf("%dk", bitrate*12/10),
		"-bufsize", fmt.Sprintf("%dk", bitrate*15/10),
	)

	args = append(args, format.audioArgs()...)
	args = append(args, format.muxerArgs()...)

	return append(args,
		"-g", "48",
		"-sc_threshold", "0",
		"-y", output,
	)
}
