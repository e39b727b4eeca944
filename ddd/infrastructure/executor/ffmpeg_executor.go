package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"stem-service/ddd/domain/port"
	"stem-service/pkg/config"
)

// FFmpegExecutor implements port.MediaTranscoder with the local ffmpeg binary.
type FFmpegExecutor struct {
	cfg    config.FFmpegConfig
	runner toolRunner
}

var _ port.MediaTranscoder = (*FFmpegExecutor)(nil)

func NewFFmpegExecutor(cfg config.FFmpegConfig) *FFmpegExecutor {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "ffmpeg"
	}
	if strings.TrimSpace(cfg.ProbePath) == "" {
		cfg.ProbePath = "ffprobe"
	}
	return &FFmpegExecutor{cfg: cfg, runner: newToolRunner(cfg.StderrLines)}
}

// Trim cuts [offset, offset+duration) from input. The output is overwritten.
func (e *FFmpegExecutor) Trim(ctx context.Context, input, output string, offset, duration float64) error {
	if offset < 0 || duration <= 0 {
		return fmt.Errorf("invalid trim window offset=%.2f duration=%.2f", offset, duration)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", input,
		"-ss", formatSeconds(offset),
		"-t", formatSeconds(duration),
		output,
	}
	_, err := e.runner.run(ctx, "ffmpeg", e.cfg.Timeout, e.cfg.BinaryPath, args...)
	return err
}

// Replicate plays input extraPlays+1 times back to back into output.
func (e *FFmpegExecutor) Replicate(ctx context.Context, input, output string, extraPlays int) error {
	if extraPlays < 1 {
		return errors.New("replicate needs at least one extra play")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-stream_loop", strconv.Itoa(extraPlays),
		"-i", input,
		"-c", "copy",
		output,
	}
	_, err := e.runner.run(ctx, "ffmpeg", e.cfg.Timeout, e.cfg.BinaryPath, args...)
	return err
}

// ProbeDuration 调用 ffprobe 获取输入时长（秒）
func (e *FFmpegExecutor) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	out, err := e.runner.run(ctx, "ffprobe", e.cfg.Timeout, e.cfg.ProbePath,
		"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", inputPath)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return val, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
