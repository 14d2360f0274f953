//go:build unix

package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns an engine whose binary is a shell script with body.
func fakeEngine(t *testing.T, body string, timeoutSeconds int, opts ...Option) (*Engine, string, string) {
	t.Helper()
	root := t.TempDir()
	sourceDir := filepath.Join(root, "source")
	tempDir := filepath.Join(root, "temp")
	require.NoError(t, os.MkdirAll(sourceDir, 0o755))
	require.NoError(t, os.MkdirAll(tempDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "m1-upload.mov"), []byte("source"), 0o644))

	bin := filepath.Join(root, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+body), 0o755))

	cfg := testFFmpegConfig()
	cfg.BinaryPath = bin
	cfg.SourceDir = sourceDir
	cfg.TempDir = tempDir
	cfg.TimeoutSeconds = timeoutSeconds
	return NewEngine(cfg, logger.NewNop(), opts...), sourceDir, tempDir
}

func testTask() *models.Task {
	return &models.Task{
		ID:            "t1",
		JobID:         "m1-3f6d",
		TargetFormat:  "H.264",
		TargetWidth:   1280,
		TargetHeight:  720,
		TargetBitrate: 2500,
	}
}

const writeLastArg = `
for last in "$@"; do :; done
printf 'frame=1 time=00:00:01.50 bitrate=1k speed=2.0x\r' >&2
echo encoded > "$last"
`

func TestEncodeSuccess(t *testing.T) {
	var mu sync.Mutex
	var seen []Progress
	engine, _, tempDir := fakeEngine(t, writeLastArg, 10, WithProgress(func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}))

	out, err := engine.Encode(context.Background(), testTask())
	require.NoError(t, err)
	assert.Equal(t, tempDir, filepath.Dir(out))
	assert.True(t, strings.HasPrefix(filepath.Base(out), "output-"))
	assert.Equal(t, ".mp4", filepath.Ext(out))

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "encoded\n", string(body))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, "t1", seen[0].TaskID)
	assert.Equal(t, 1500*time.Millisecond, seen[0].Position)
	assert.InDelta(t, 2.0, seen[0].Speed, 1e-9)
}

func TestEncodeUniqueOutputPerTask(t *testing.T) {
	engine, _, _ := fakeEngine(t, writeLastArg, 10)
	a, err := engine.Encode(context.Background(), testTask())
	require.NoError(t, err)
	b, err := engine.Encode(context.Background(), testTask())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncodeVP9Extension(t *testing.T) {
	engine, _, _ := fakeEngine(t, writeLastArg, 10)
	task := testTask()
	task.TargetFormat = "VP9"
	out, err := engine.Encode(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, ".webm", filepath.Ext(out))
}

func TestEncodeUsesMediaFileID(t *testing.T) {
	engine, sourceDir, _ := fakeEngine(t, writeLastArg, 10)
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "a1b2-c3-clip.mp4"), []byte("x"), 0o644))

	task := testTask()
	task.JobID = "a1b2-c3-0000"
	task.MediaFileID = "a1b2-c3"
	_, err := engine.Encode(context.Background(), task)
	require.NoError(t, err)
}

func TestEncodeNonZeroExit(t *testing.T) {
	engine, _, tempDir := fakeEngine(t, "echo 'Error opening output file' >&2\nexit 3\n", 10)

	_, err := engine.Encode(context.Background(), testTask())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEncodeFailure))
	assert.Contains(t, err.Error(), "code 3")
	assert.Contains(t, err.Error(), "Error opening output file")

	leftovers, _ := filepath.Glob(filepath.Join(tempDir, "output-*"))
	assert.Empty(t, leftovers)
}

func TestEncodeEmptyOutput(t *testing.T) {
	engine, _, _ := fakeEngine(t, "exit 0\n", 10)
	_, err := engine.Encode(context.Background(), testTask())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEncodeFailure))
}

func TestEncodeTimeoutKillsProcessGroup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "sleep.pid")
	t.Setenv("FAKE_FFMPEG_PIDFILE", pidFile)
	engine, _, tempDir := fakeEngine(t, "sleep 5 &\necho $! > \"$FAKE_FFMPEG_PIDFILE\"\nwait\n", 1)

	start := time.Now()
	_, err := engine.Encode(context.Background(), testTask())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout), "got %v", err)
	assert.Less(t, elapsed, 4*time.Second)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !processAlive(pid) }, 2*time.Second, 20*time.Millisecond)

	leftovers, _ := filepath.Glob(filepath.Join(tempDir, "output-*"))
	assert.Empty(t, leftovers)
}

func TestEncodeCancelled(t *testing.T) {
	engine, _, _ := fakeEngine(t, "sleep 5\n", 10)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := engine.Encode(ctx, testTask())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, apperrors.ErrTimeout))
}

func TestEncodeSourceMissing(t *testing.T) {
	engine, _, _ := fakeEngine(t, writeLastArg, 10)
	task := testTask()
	task.JobID = "m2-0000"
	_, err := engine.Encode(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFindSource(t *testing.T) {
	engine, sourceDir, _ := fakeEngine(t, writeLastArg, 10)
	require.NoError(t, os.Mkdir(filepath.Join(sourceDir, "m1-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "m10-other.mov"), []byte("x"), 0o644))

	path, err := engine.FindSource("m1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sourceDir, "m1-upload.mov"), path)

	path, err = engine.FindSource("m10")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sourceDir, "m10-other.mov"), path)

	_, err = engine.FindSource("")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestVersion(t *testing.T) {
	engine, _, _ := fakeEngine(t, "echo 'ffmpeg version 6.1-test Copyright'\necho 'built with gcc'\n", 10)
	v, err := engine.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg version 6.1-test Copyright", v)

	broken, _, _ := fakeEngine(t, "exit 1\n", 10)
	_, err = broken.Version(context.Background())
	assert.Error(t, err)
}

func TestPrepareCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := testFFmpegConfig()
	cfg.TempDir = filepath.Join(root, "a", "temp")
	cfg.SourceDir = filepath.Join(root, "b", "source")
	require.NoError(t, NewEngine(cfg, logger.NewNop()).Prepare())
	assert.DirExists(t, cfg.TempDir)
	assert.DirExists(t, cfg.SourceDir)
}

// processAlive treats zombies as dead: they only wait for their parent to
// reap them.
func processAlive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return !os.IsNotExist(err)
	}
	if i := strings.LastIndexByte(string(stat), ')'); i >= 0 && i+2 < len(stat) {
		return stat[i+2] != 'Z'
	}
	return true
}
