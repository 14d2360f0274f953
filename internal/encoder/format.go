package encoder

import (
	"strings"

	"github.com/amankumarsingh77/pixiescale/internal/config"
)

// Format is the closed set of output encodings the engine knows.
type Format int

const (
	FormatH264 Format = iota
	FormatH265
	FormatVP9

	formatCount
)

// Formats lists every supported format.
func Formats() []Format {
	out := make([]Format, 0, formatCount)
	for f := Format(0); f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}

// ParseFormat matches case-insensitively. Unknown names fall back to H.264.
func ParseFormat(name string) Format {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "H.264", "H264", "MP4":
		return FormatH264
	case "H.265", "H265", "HEVC":
		return FormatH265
	case "VP9", "WEBM":
		return FormatVP9
	default:
		return FormatH264
	}
}

func (f Format) String() string {
	return profiles[f].name
}

// Extension is the output file extension without the dot.
func (f Format) Extension() string {
	return profiles[f].extension
}

type argBuilder func(cfg config.FFmpegConfig) []string

type profile struct {
	name      string
	extension string
	cpu       argBuilder
	// gpu is nil when no hardware encoder exists for the format.
	gpu       argBuilder
	audio     []string
	muxer     []string
}

var (
	aacAudio  = []string{"-c:a", "aac", "-b:a", "96k", "-ar", "44100"}
	opusAudio = []string{"-c:a", "libopus", "-b:a", "96k", "-ar", "48000"}
	mp4Muxer  = []string{"-movflags", "+faststart"}
)

var profiles = [formatCount]profile{
	FormatH264: {
		name:      "H.264",
		extension: "mp4",
		cpu: func(cfg config.FFmpegConfig) []string {
			return []string{"-c:v", "libx264", "-preset", cfg.CPUPreset, "-tune", "fastdecode", "-crf", "28"}
		},
		gpu: func(cfg config.FFmpegConfig) []string {
			return []string{"-c:v", "h264_nvenc", "-preset", cfg.GPUPreset}
		},
		audio: aacAudio,
		muxer: mp4Muxer,
	},
	FormatH265: {
		name:      "H.265",
		extension: "mp4",
		cpu: func(cfg config.FFmpegConfig) []string {
			return []string{"-c:v", "libx265", "-preset", cfg.CPUPreset, "-x265-params", "log-level=error"}
		},
		gpu: func(cfg config.FFmpegConfig) []string {
			return []string{"-c:v", "hevc_nvenc", "-preset", cfg.GPUPreset}
		},
		audio: aacAudio,
		muxer: mp4Muxer,
	},
	FormatVP9: {
		name:      "VP9",
		extension: "webm",
		cpu: func(config.FFmpegConfig) []string {
			return []string{"-c:v", "libvpx-vp9", "-speed", "4", "-tile-columns", "2", "-frame-parallel", "1"}
		},
		// webm carries opus or vorbis only and has no moov atom to relocate.
		audio: opusAudio,
	},
}

// videoArgs returns the codec flags, using the hardware encoder when asked
// for and available.
func (f Format) videoArgs(cfg config.FFmpegConfig) []string {
	p := profiles[f]
	if cfg.GPUAcceleration && p.gpu != nil {
		return p.gpu(cfg)
	}
	return p.cpu(cfg)
}

func (f Format) audioArgs() []string {
	return profiles[f].audio
}

func (f Format) muxerArgs() []string {
	return profiles[f].muxer
}
