package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amankumarsingh77/pixiescale/internal/metrics"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/internal/storage/repository"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{ storage.BlobStore }

func (brokenStore) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	return "", errors.Wrap(apperrors.ErrStorageFailure, "disk full")
}

func output(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("frames"), 0o644))
	return p
}

func newUseCase(t *testing.T) (storage.UseCase, string, *metrics.Metrics) {
	t.Helper()
	base := t.TempDir()
	store, err := repository.NewLocalRepository(base)
	require.NoError(t, err)
	m := metrics.New()
	return NewStorageUseCase(store, m, logger.NewNop()), base, m
}

func TestFinalizeStoresOutput(t *testing.T) {
	uc, base, m := newUseCase(t)
	out := output(t, "tmp-123.webm")

	res := uc.Finalize(context.Background(), &models.TaskResultEvent{
		TaskID: "t1", JobID: "m1-job", Status: models.JobStatusCompleted, OutputPath: out,
	})
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, "t1", res.TaskID)
	assert.Equal(t, "m1-job", res.JobID)
	assert.Equal(t, "m1-job/t1.webm", res.StoragePath)
	assert.Equal(t, "video/webm", res.ContentType)
	assert.Empty(t, res.ErrorMessage)

	assert.NoFileExists(t, out)
	data, err := os.ReadFile(filepath.Join(base, "m1-job", "t1.webm"))
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageResults.WithLabelValues("true")))
}

func TestFinalizeIgnoresFailedResults(t *testing.T) {
	uc, _, m := newUseCase(t)
	out := output(t, "x.mp4")
	res := uc.Finalize(context.Background(), &models.TaskResultEvent{
		TaskID: "t1", JobID: "j", Status: models.JobStatusFailed, OutputPath: out, ErrorMessage: "boom",
	})
	assert.Nil(t, res)
	assert.FileExists(t, out)
	assert.Equal(t, 0, testutil.CollectAndCount(m.StorageResults))
}

func TestFinalizeFailures(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		message string
	}{
		{"empty path", "", "output path is empty"},
		{"missing file", "/nonexistent/out.mp4", "output file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _, m := newUseCase(t)
			res := uc.Finalize(context.Background(), &models.TaskResultEvent{
				TaskID: "t1", JobID: "j", Status: models.JobStatusCompleted, OutputPath: tt.path,
			})
			require.NotNil(t, res)
			assert.False(t, res.Success)
			assert.Contains(t, res.ErrorMessage, tt.message)
			assert.Empty(t, res.StoragePath)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageResults.WithLabelValues("false")))
		})
	}
}

func TestFinalizeStoreErrorStillRemovesLocalFile(t *testing.T) {
	uc := NewStorageUseCase(brokenStore{}, nil, logger.NewNop())
	out := output(t, "x.mp4")
	res := uc.Finalize(context.Background(), &models.TaskResultEvent{
		TaskID: "t1", JobID: "j", Status: models.JobStatusCompleted, OutputPath: out,
	})
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "disk full")
	assert.NoFileExists(t, out)
}
