package models

import "time"

type MediaMetadata struct {
	Format    string  `json:"format,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Codec     string  `json:"codec,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Bitrate   int64   `json:"bitrate,omitempty"`
	FrameRate float64 `json:"frameRate,omitempty"`
}

// MediaFile is what the jobs service knows about an ingested upload.
type MediaFile struct {
	ID          string         `json:"id"`
	FileName    string         `json:"fileName"`
	ContentType string         `json:"contentType"`
	FileSize    int64          `json:"fileSize"`
	StoragePath string         `json:"storagePath"`
	Metadata    *MediaMetadata `json:"metadata,omitempty"`
	UploadedAt  time.Time      `json:"uploadedAt"`
}
