package repository

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

type minioRepository struct {
	client *minio.Client
	bucket string
}

func NewMinioRepository(client *minio.Client, bucket string) storage.BlobStore {
	return &minioRepository{client: client, bucket: bucket}
}

func (m *minioRepository) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrStorageFailure, "upload %s: %v", key, err)
	}
	return key, nil
}

// Open stats the object first because GetObject defers the request until
// the first read.
func (m *minioRepository) Open(ctx context.Context, key string) (*storage.Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrStorageFailure, "download %s: %v", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperrors.NotFound("object %s", key)
		}
		return nil, errors.Wrapf(apperrors.ErrStorageFailure, "stat %s: %v", key, err)
	}
	ct := info.ContentType
	if ct == "" {
		ct = storage.ContentType(key)
	}
	return &storage.Object{Body: obj, ContentType: ct, Size: info.Size}, nil
}

func (m *minioRepository) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(apperrors.ErrStorageFailure, "remove %s: %v", key, err)
	}
	return nil
}
