// Package encoder runs ffmpeg for a single transcoding task.
package encoder

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/amankumarsingh77/pixiescale/internal/config"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/pkg/errors"
)

const (
	// drainTimeout bounds how long output is read after ffmpeg exits.
	drainTimeout = 2 * time.Second
	maxLineSize  = 1 << 20
)

type ProgressFunc func(Progress)

type Engine struct {
	cfg        config.FFmpegConfig
	logger     logger.Logger
	onProgress ProgressFunc
}

type Option func(*Engine)

// WithProgress registers an observer for parsed status lines.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.onProgress = fn }
}

func NewEngine(cfg config.FFmpegConfig, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, logger: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() config.FFmpegConfig {
	return e.cfg
}

// Prepare creates the working directories.
func (e *Engine) Prepare() error {
	for _, dir := range []string{e.cfg.TempDir, e.cfg.SourceDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

// Version runs "ffmpeg -version" and returns its first line.
func (e *Engine) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.cfg.BinaryPath, "-version").Output()
	if err != nil {
		return "", errors.Wrapf(err, "%s -version", e.cfg.BinaryPath)
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first), nil
}

// Encode transcodes the task's source file into a new file under the temp
// directory and returns its path. The caller owns the file.
func (e *Engine) Encode(ctx context.Context, task *models.Task) (string, error) {
	mediaID := task.MediaFileID
	if mediaID == "" {
		mediaID = models.MediaIDFromJobID(task.JobID)
	}
	input, err := e.FindSource(mediaID)
	if err != nil {
		return "", err
	}

	format := ParseFormat(task.TargetFormat)
	if err := os.MkdirAll(e.cfg.TempDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create temp dir")
	}
	f, err := os.CreateTemp(e.cfg.TempDir, "output-*."+format.Extension())
	if err != nil {
		return "", errors.Wrap(err, "create output file")
	}
	output := f.Name()
	f.Close()

	e.logger.Infof("Encode - task %s: %s %s %dk from %s", task.ID, format, task.Resolution(), task.TargetBitrate, input)
	if err := e.run(ctx, task, BuildArgs(e.cfg, task, input, output)); err != nil {
		os.Remove(output)
		return "", err
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		os.Remove(output)
		return "", errors.Wrap(apperrors.ErrEncodeFailure, "encoder produced no output")
	}
	return output, nil
}

// FindSource returns the first regular file in the source directory named
// "{mediaID}-...".
func (e *Engine) FindSource(mediaID string) (string, error) {
	if mediaID == "" {
		return "", apperrors.NotFound("source for empty media id")
	}
	entries, err := os.ReadDir(e.cfg.SourceDir)
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrNotFound, "read source dir %s: %v", e.cfg.SourceDir, err)
	}
	prefix := mediaID + "-"
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), prefix) {
			return filepath.Join(e.cfg.SourceDir, entry.Name()), nil
		}
	}
	return "", apperrors.NotFound("source file for media %s", mediaID)
}

func (e *Engine) run(ctx context.Context, task *models.Task, args []string) error {
	runCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	pr, pw, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "output pipe")
	}
	defer pr.Close()

	cmd := exec.CommandContext(runCtx, e.cfg.BinaryPath, args...)
	configureProcess(cmd)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return errors.Wrapf(apperrors.ErrEncodeFailure, "start %s: %v", e.cfg.BinaryPath, err)
	}
	pw.Close()

	lastError := make(chan string, 1)
	go func() {
		lastError <- e.scan(pr, task.ID)
	}()

	waitErr := cmd.Wait()

	var errLine string
	select {
	case errLine = <-lastError:
	case <-time.After(drainTimeout):
		pr.Close()
		errLine = <-lastError
	}

	switch {
	case ctx.Err() != nil:
		return errors.Wrap(ctx.Err(), "encode cancelled")
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return errors.Wrapf(apperrors.ErrTimeout, "encode exceeded %s", e.cfg.Timeout())
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if errLine != "" {
				return errors.Wrapf(apperrors.ErrEncodeFailure, "ffmpeg exited with code %d: %s", exitErr.ExitCode(), errLine)
			}
			return errors.Wrapf(apperrors.ErrEncodeFailure, "ffmpeg exited with code %d", exitErr.ExitCode())
		}
		return errors.Wrapf(apperrors.ErrEncodeFailure, "wait: %v", waitErr)
	}
	return nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := e.cfg.Timeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// scan reads the interleaved output until EOF and returns the last line that
// looked like an error.
func (e *Engine) scan(r *os.File, taskID string) string {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	sc.Split(splitLines)

	var lastErr string
	for sc.Scan() {
		line := string(bytes.TrimSpace(sc.Bytes()))
		if line == "" {
			continue
		}
		if p, ok := ParseProgress(line); ok {
			p.TaskID = taskID
			p.Updated = time.Now()
			e.logger.Debugf("task %s progress time=%s speed=%.2fx", taskID, p.Position, p.Speed)
			if e.onProgress != nil {
				e.onProgress(p)
			}
			continue
		}
		if isErrorLine(line) {
			lastErr = line
			e.logger.Warnf("task %s ffmpeg: %s", taskID, line)
		}
	}
	return lastErr
}
