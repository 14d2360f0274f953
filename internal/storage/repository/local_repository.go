package repository

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/pkg/errors"
)

// localRepository keeps outputs under a base directory on the local disk.
type localRepository struct {
	baseDir string
}

func NewLocalRepository(baseDir string) (storage.BlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", baseDir)
	}
	return &localRepository{baseDir: baseDir}, nil
}

// resolve cleans key as a rooted path so it can never leave baseDir.
func (l *localRepository) resolve(key string) (string, string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", "", apperrors.BadRequest("empty storage key")
	}
	return clean[1:], filepath.Join(l.baseDir, filepath.FromSlash(clean)), nil
}

func (l *localRepository) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	key, dst, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrapf(apperrors.ErrStorageFailure, "create dir for %s: %v", key, err)
	}
	if err := os.Rename(localPath, dst); err == nil {
		return key, nil
	}
	if err := copyFile(localPath, dst); err != nil {
		return "", errors.Wrapf(apperrors.ErrStorageFailure, "store %s: %v", key, err)
	}
	return key, nil
}

// copyFile writes through a temp file in the destination directory so a
// reader never sees a partial object.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (l *localRepository) Open(ctx context.Context, key string) (*storage.Object, error) {
	key, p, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("object %s", key)
		}
		return nil, errors.Wrapf(apperrors.ErrStorageFailure, "open %s: %v", key, err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, apperrors.NotFound("object %s", key)
	}
	return &storage.Object{Body: f, ContentType: storage.ContentType(key), Size: info.Size()}, nil
}

// Delete is idempotent.
func (l *localRepository) Delete(ctx context.Context, key string) error {
	key, p, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(apperrors.ErrStorageFailure, "delete %s: %v", key, err)
	}
	return nil
}
