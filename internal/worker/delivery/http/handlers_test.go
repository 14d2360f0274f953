package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amankumarsingh77/pixiescale/internal/worker"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStatus struct{ s *worker.Status }

func (s staticStatus) Status() *worker.Status { return s.s }

type versionFunc func(ctx context.Context) (string, error)

func (f versionFunc) Version(ctx context.Context) (string, error) { return f(ctx) }

func serve(h worker.Handler, path string) *httptest.ResponseRecorder {
	e := echo.New()
	MapWorkerRoutes(e.Group("/api/v1/transcoding/worker"), h)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatus(t *testing.T) {
	st := &worker.Status{WorkerID: "w1", ActiveTasks: 1, MaxConcurrentTasks: 2}
	st.FFmpeg.BinaryPath = "/usr/bin/ffmpeg"
	h := NewWorkerHandler(staticStatus{st}, versionFunc(func(context.Context) (string, error) { return "", nil }), logger.NewNop())

	rec := serve(h, "/api/v1/transcoding/worker/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "w1", got["workerId"])
	assert.Equal(t, 2.0, got["maxConcurrentTasks"])
	assert.Equal(t, "/usr/bin/ffmpeg", got["ffmpeg"].(map[string]interface{})["binaryPath"])
}

func TestHealth(t *testing.T) {
	up := NewWorkerHandler(staticStatus{&worker.Status{}}, versionFunc(func(context.Context) (string, error) {
		return "ffmpeg version 6.1", nil
	}), logger.NewNop())
	rec := serve(up, "/api/v1/transcoding/worker/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UP", body["status"])
	assert.Equal(t, true, body["ffmpegAvailable"])
	assert.Equal(t, "ffmpeg version 6.1", body["ffmpegVersion"])

	down := NewWorkerHandler(staticStatus{&worker.Status{}}, versionFunc(func(context.Context) (string, error) {
		return "", errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
	}), logger.NewNop())
	rec = serve(down, "/api/v1/transcoding/worker/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DOWN")
}
