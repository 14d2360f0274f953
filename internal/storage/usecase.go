package storage

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/models"
)

type UseCase interface {
	// Finalize stores a successful task output. It returns nil for results
	// that are not COMPLETED.
	Finalize(ctx context.Context, ev *models.TaskResultEvent) *models.StorageResultEvent
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
