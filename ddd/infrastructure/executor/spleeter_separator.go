package executor

import (
	"context"
	"fmt"
	"strings"

	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/vo"
	"stem-service/pkg/config"
)

// SpleeterSeparator drives `spleeter separate`, which writes
// <outputRoot>/<baseName>/<stem>.wav for every stem of the chosen model.
type SpleeterSeparator struct {
	cfg    config.SeparatorConfig
	runner toolRunner
}

var _ port.Separator = (*SpleeterSeparator)(nil)

func NewSpleeterSeparator(cfg config.SeparatorConfig) *SpleeterSeparator {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "spleeter"
	}
	return &SpleeterSeparator{cfg: cfg, runner: newToolRunner(0)}
}

func (s *SpleeterSeparator) Separate(ctx context.Context, audioPath, outputRoot string, stemCount int) error {
	count, err := vo.NewStemCount(stemCount)
	if err != nil {
		return err
	}
	args := []string{
		"separate",
		"-p", count.ModelName(s.cfg.ModelPrefix),
		"-o", outputRoot,
		audioPath,
	}
	if _, err := s.runner.run(ctx, "spleeter", s.cfg.Timeout, s.cfg.BinaryPath, args...); err != nil {
		return fmt.Errorf("separate %s: %w", audioPath, err)
	}
	return nil
}
