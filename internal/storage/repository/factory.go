package repository

import (
	"context"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/storage"
	awsClient "github.com/amankumarsingh77/pixiescale/pkg/db/aws"
	minioClient "github.com/amankumarsingh77/pixiescale/pkg/db/minio"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
)

// NewBlobStore builds the store named by storage.driver.
func NewBlobStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.BlobStore, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		log.Infof("Storing outputs under %s", cfg.Storage.BaseDir)
		return NewLocalRepository(cfg.Storage.BaseDir)
	case "s3":
		client, err := awsClient.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		log.Infof("Storing outputs in s3 bucket %s", cfg.S3.OutputBucket)
		return NewAwsRepository(client, cfg.S3.OutputBucket), nil
	case "minio":
		client, err := minioClient.NewMinioClient(ctx, cfg.Minio)
		if err != nil {
			return nil, err
		}
		log.Infof("Storing outputs in minio bucket %s at %s", cfg.Minio.Bucket, cfg.Minio.Endpoint)
		return NewMinioRepository(client, cfg.Minio.Bucket), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
