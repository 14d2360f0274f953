package jobs

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/models"
)

// MediaCatalog remembers uploads announced on the media-uploaded topic.
type MediaCatalog interface {
	PutMedia(ctx context.Context, media *models.MediaFile) error
	GetMedia(ctx context.Context, mediaID string) (*models.MediaFile, error)
}
