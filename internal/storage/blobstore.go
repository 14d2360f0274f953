// Package storage moves finished encodes into durable blob storage.
package storage

import (
	"context"
	"io"
)

// Object is an open stored output. Callers close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// BlobStore keeps outputs under slash-separated keys. Put returns the
// storage path reported to the orchestrator, which is the key itself.
type BlobStore interface {
	Put(ctx context.Context, key, localPath, contentType string) (string, error)
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
