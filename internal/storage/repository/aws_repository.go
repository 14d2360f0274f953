package repository

import (
	"context"
	"os"

	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

type awsRepository struct {
	client *s3.Client
	bucket string
}

func NewAwsRepository(client *s3.Client, bucket string) storage.BlobStore {
	return &awsRepository{client: client, bucket: bucket}
}

func (a *awsRepository) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrStorageFailure, "open %s: %v", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrStorageFailure, "stat %s: %v", localPath, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrStorageFailure, "upload %s: %v", key, err)
	}
	return key, nil
}

func (a *awsRepository) Open(ctx context.Context, key string) (*storage.Object, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, apperrors.NotFound("object %s", key)
		}
		return nil, errors.Wrapf(apperrors.ErrStorageFailure, "download %s: %v", key, err)
	}
	ct := aws.ToString(out.ContentType)
	if ct == "" {
		ct = storage.ContentType(key)
	}
	return &storage.Object{Body: out.Body, ContentType: ct, Size: aws.ToInt64(out.ContentLength)}, nil
}

func (a *awsRepository) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(apperrors.ErrStorageFailure, "remove %s: %v", key, err)
	}
	return nil
}
