package encoder

import (
	"testing"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFFmpegConfig() config.FFmpegConfig {
	return config.FFmpegConfig{
		BinaryPath:      "ffmpeg",
		TempDir:         "/tmp",
		TimeoutSeconds:  3600,
		GPUDevice:       "0",
		ThreadCount:     0,
		CPUPreset:       "medium",
		GPUPreset:       "p4",
		BufferSize:      16,
		AnalyzeDuration: 5000000,
		ThreadQueueSize: 256,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"H.264", FormatH264},
		{"h.264", FormatH264},
		{"MP4", FormatH264},
		{"mp4", FormatH264},
		{"H.265", FormatH265},
		{"hevc", FormatH265},
		{"VP9", FormatVP9},
		{"WebM", FormatVP9},
		{"", FormatH264},
		{"av1", FormatH264},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.in))
		})
	}
}

func TestEveryFormatHasProfile(t *testing.T) {
	formats := Formats()
	require.Len(t, formats, int(formatCount))
	for _, f := range formats {
		p := profiles[f]
		assert.NotEmpty(t, p.name, "format %d", f)
		assert.NotEmpty(t, p.extension, "format %d", f)
		require.NotNil(t, p.cpu, "format %s", p.name)
		assert.NotEmpty(t, f.videoArgs(testFFmpegConfig()))

		gpuCfg := testFFmpegConfig()
		gpuCfg.GPUAcceleration = true
		assert.NotEmpty(t, f.videoArgs(gpuCfg))
	}
	assert.Equal(t, "mp4", FormatH264.Extension())
	assert.Equal(t, "mp4", FormatH265.Extension())
	assert.Equal(t, "webm", FormatVP9.Extension())
}

func TestBuildArgsH264CPU(t *testing.T) {
	task := &models.Task{TargetFormat: "H.264", TargetWidth: 1280, TargetHeight: 720, TargetBitrate: 2500}
	args := BuildArgs(testFFmpegConfig(), task, "/src/m1-a.mov", "/tmp/output-1.mp4")

	want := []string{
		"-threads", "0",
		"-analyzeduration", "5000000",
		"-probesize", "16M",
		"-thread_queue_size", "256",
		"-i", "/src/m1-a.mov",
		"-c:v", "libx264", "-preset", "medium", "-tune", "fastdecode", "-crf", "28",
		"-s", "1280x720",
		"-b:v", "2500k", "-maxrate", "3000k", "-bufsize", "3750k",
		"-c:a", "aac", "-b:a", "96k", "-ar", "44100",
		"-movflags", "+faststart", "-g", "48", "-sc_threshold", "0",
		"-y", "/tmp/output-1.mp4",
	}
	assert.Equal(t, want, args)
}

func TestBuildArgsH265GPU(t *testing.T) {
	cfg := testFFmpegConfig()
	cfg.GPUAcceleration = true
	cfg.GPUDevice = "1"
	cfg.ThreadCount = 4
	task := &models.Task{TargetFormat: "HEVC", TargetWidth: 854, TargetHeight: 480, TargetBitrate: 1500}
	args := BuildArgs(cfg, task, "in", "out")

	assert.Equal(t, []string{"-threads", "4", "-hwaccel", "cuda", "-hwaccel_device", "1"}, args[:6])
	assert.Contains(t, args, "hevc_nvenc")
	assert.Contains(t, args, "p4")
	assert.NotContains(t, args, "libx265")
	assert.Contains(t, args, "1800k")
	assert.Contains(t, args, "2250k")
}

func TestBuildArgsVP9UsesSoftwareEncoderWithGPU(t *testing.T) {
	cfg := testFFmpegConfig()
	cfg.GPUAcceleration = true
	task := &models.Task{TargetFormat: "VP9", TargetWidth: 640, TargetHeight: 360, TargetBitrate: 800}
	args := BuildArgs(cfg, task, "in", "out.webm")

	assert.Contains(t, args, "libvpx-vp9")
	assert.Contains(t, args, "-tile-columns")
	assert.Equal(t, "out.webm", args[len(args)-1])
}

func TestBuildArgsVP9UsesWebmAudio(t *testing.T) {
	task := &models.Task{TargetFormat: "VP9", TargetWidth: 640, TargetHeight: 360, TargetBitrate: 800}
	args := BuildArgs(testFFmpegConfig(), task, "in", "out.webm")

	assert.Contains(t, args, "libopus")
	assert.NotContains(t, args, "aac")
	assert.NotContains(t, args, "-movflags")
	assert.NotContains(t, args, "+faststart")
}

func TestEveryFormatHasAudio(t *testing.T) {
	for _, f := range Formats() {
		assert.NotEmpty(t, f.audioArgs(), "format %s", f)
	}
	assert.Equal(t, []string{"-movflags", "+faststart"}, FormatH265.muxerArgs())
	assert.Empty(t, FormatVP9.muxerArgs())
}
