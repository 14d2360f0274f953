package utils

import (
	"strings"

	"github.com/amankumarsingh77/pixiescale/internal/models"
)

// GetDefaultDimensions returns the frame size for a well-known resolution name.
func GetDefaultDimensions(resolution string) (int, int, bool) {
	switch strings.ToLower(resolution) {
	case "2160p", "4k":
		return 3840, 2160, true
	case "1440p", "2k":
		return 2560, 1440, true
	case "1080p":
		return 1920, 1080, true
	case "720p":
		return 1280, 720, true
	case "480p":
		return 854, 480, true
	case "360p":
		return 640, 360, true
	case "240p":
		return 426, 240, true
	case "144p":
		return 256, 144, true
	default:
		return 0, 0, false
	}
}

// GetDefaultBitrate returns the target bitrate in kbps for a resolution name.
func GetDefaultBitrate(resolution string) int {
	switch strings.ToLower(resolution) {
	case "2160p", "4k":
		return 16000
	case "1440p", "2k":
		return 8000
	case "1080p":
		return 5000
	case "720p":
		return 2500
	case "480p":
		return 1500
	case "360p":
		return 800
	case "240p":
		return 400
	case "144p":
		return 200
	default:
		return 0
	}
}

// FillPresetDefaults completes presets that only name a resolution. Values
// already set are left alone.
func FillPresetDefaults(presets []models.ResolutionPreset) {
	for i := range presets {
		p := &presets[i]
		if p.Width <= 0 && p.Height <= 0 {
			if w, h, ok := GetDefaultDimensions(p.Name); ok {
				p.Width, p.Height = w, h
			}
		}
		if p.Bitrate <= 0 {
			p.Bitrate = GetDefaultBitrate(p.Name)
		}
	}
}
