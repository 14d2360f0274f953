package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type memoryMediaCatalog struct {
	mu    sync.RWMutex
	media map[string]models.MediaFile
}

func NewMemoryMediaCatalog() jobs.MediaCatalog {
	return &memoryMediaCatalog{media: make(map[string]models.MediaFile)}
}

func (c *memoryMediaCatalog) PutMedia(ctx context.Context, media *models.MediaFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media[media.ID] = *media
	return nil
}

func (c *memoryMediaCatalog) GetMedia(ctx context.Context, mediaID string) (*models.MediaFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.media[mediaID]
	if !ok {
		return nil, apperrors.NotFound("media file %s", mediaID)
	}
	return &m, nil
}

type redisMediaCatalog struct {
	redisClient *redis.Client
	prefix      string
}

func NewRedisMediaCatalog(redisClient *redis.Client, prefix string) jobs.MediaCatalog {
	return &redisMediaCatalog{redisClient: redisClient, prefix: prefix}
}

func (c *redisMediaCatalog) key(mediaID string) string {
	return c.prefix + "mediafile:" + mediaID
}

func (c *redisMediaCatalog) PutMedia(ctx context.Context, media *models.MediaFile) error {
	data, err := json.Marshal(media)
	if err != nil {
		return errors.Wrapf(err, "marshal media %s", media.ID)
	}
	if err := c.redisClient.Set(ctx, c.key(media.ID), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "store media %s", media.ID)
	}
	return nil
}

func (c *redisMediaCatalog) GetMedia(ctx context.Context, mediaID string) (*models.MediaFile, error) {
	data, err := c.redisClient.Get(ctx, c.key(mediaID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFound("media file %s", mediaID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get media %s", mediaID)
	}
	m := &models.MediaFile{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, "unmarshal media %s", mediaID)
	}
	return m, nil
}
