package utils

import (
	"context"
	"testing"

	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFillPresetDefaults(t *testing.T) {
	presets := []models.ResolutionPreset{
		{Name: "720p"},
		{Name: "480p", Width: 640, Height: 480, Bitrate: 900},
		{Name: "custom", Width: 100, Height: 100},
	}
	FillPresetDefaults(presets)

	assert.Equal(t, models.ResolutionPreset{Name: "720p", Width: 1280, Height: 720, Bitrate: 2500}, presets[0])
	assert.Equal(t, models.ResolutionPreset{Name: "480p", Width: 640, Height: 480, Bitrate: 900}, presets[1])
	assert.Equal(t, 0, presets[2].Bitrate)
}

func TestValidateStruct(t *testing.T) {
	ctx := context.Background()
	valid := &models.TranscodingJobRequest{
		MediaFileID: "m1",
		Config: models.TranscodingConfig{
			TargetFormat: "H.264",
			Resolutions:  []models.ResolutionPreset{{Name: "720p", Width: 1280, Height: 720, Bitrate: 2500}},
		},
	}
	assert.NoError(t, ValidateStruct(ctx, valid))

	noPresets := &models.TranscodingJobRequest{MediaFileID: "m1"}
	assert.Error(t, ValidateStruct(ctx, noPresets))

	badPreset := &models.TranscodingJobRequest{
		MediaFileID: "m1",
		Config: models.TranscodingConfig{
			Resolutions: []models.ResolutionPreset{{Name: "x", Width: 0, Height: 720, Bitrate: 2500}},
		},
	}
	assert.Error(t, ValidateStruct(ctx, badPreset))

	noMedia := &models.TranscodingJobRequest{Config: valid.Config}
	assert.Error(t, ValidateStruct(ctx, noMedia))
}

func TestGetSystemStats(t *testing.T) {
	stats := GetSystemStats()
	assert.Greater(t, stats.NumCPU, 0)
	assert.Greater(t, stats.NumGoroutine, 0)
}
