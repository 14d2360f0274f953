package models

// ResolutionPreset is one requested rendition. Bitrate is in kbps.
type ResolutionPreset struct {
	Name    string `json:"name" validate:"lte=32"`
	Width   int    `json:"width" validate:"gt=0"`
	Height  int    `json:"height" validate:"gt=0"`
	Bitrate int    `json:"bitrate" validate:"gt=0"`
}

type TranscodingConfig struct {
	TargetCodec  string             `json:"targetCodec" validate:"lte=32"`
	TargetFormat string             `json:"targetFormat" validate:"lte=32"`
	Resolutions  []ResolutionPreset `json:"resolutions" validate:"required,min=1,dive"`
}

// Format is the value handed to the encoder for every task of the job.
func (c TranscodingConfig) Format() string {
	if c.TargetFormat != "" {
		return c.TargetFormat
	}
	return c.TargetCodec
}

type TranscodingJobRequest struct {
	MediaFileID string            `json:"mediaFileId" validate:"required,lte=255"`
	Config      TranscodingConfig `json:"config"`
}

// TranscodingJobResponse is the job summary returned over HTTP. Per-task
// errors are not part of it.
type TranscodingJobResponse struct {
	ID             string    `json:"id"`
	MediaFileID    string    `json:"mediaFileId"`
	Status         JobStatus `json:"status"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
	CreatedAt      string    `json:"createdAt"`
	StartedAt      string    `json:"startedAt,omitempty"`
	CompletedAt    string    `json:"completedAt,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
}

func NewJobResponse(j *Job) *TranscodingJobResponse {
	resp := &TranscodingJobResponse{
		ID:             j.ID,
		MediaFileID:    j.MediaFileID,
		Status:         j.Status,
		TotalTasks:     len(j.Tasks),
		CompletedTasks: j.CompletedTasks(),
		CreatedAt:      formatTime(j.CreatedAt),
		ErrorMessage:   j.ErrorMessage,
	}
	if j.StartedAt != nil {
		resp.StartedAt = formatTime(*j.StartedAt)
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = formatTime(*j.CompletedAt)
	}
	return resp
}
