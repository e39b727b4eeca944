package executor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"stem-service/ddd/domain/port"
	"stem-service/pkg/config"
)

var tempoPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// AudioAnalyzer probes duration with ffprobe and tempo with a configurable
// command whose stdout starts with the BPM value (for example `aubio tempo`).
type AudioAnalyzer struct {
	probe  *FFmpegExecutor
	cfg    config.AnalyzerConfig
	runner toolRunner
}

var _ port.Analyzer = (*AudioAnalyzer)(nil)

func NewAudioAnalyzer(cfg config.AnalyzerConfig, probe *FFmpegExecutor) *AudioAnalyzer {
	if strings.TrimSpace(cfg.TempoCommand) == "" {
		cfg.TempoCommand = "aubio"
		cfg.TempoArgs = []string{"tempo"}
	}
	return &AudioAnalyzer{probe: probe, cfg: cfg, runner: newToolRunner(0)}
}

func (a *AudioAnalyzer) Duration(ctx context.Context, audioPath string) (float64, error) {
	return a.probe.ProbeDuration(ctx, audioPath)
}

func (a *AudioAnalyzer) Tempo(ctx context.Context, audioPath string) (float64, error) {
	args := append(append([]string{}, a.cfg.TempoArgs...), audioPath)
	out, err := a.runner.run(ctx, "tempo", a.cfg.Timeout, a.cfg.TempoCommand, args...)
	if err != nil {
		return 0, err
	}
	return parseTempo(string(out))
}

// parseTempo 取输出中最后一个非空行的第一个数字
func parseTempo(out string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := tempoPattern.FindString(lines[i])
		if m == "" {
			continue
		}
		bpm, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, err
		}
		if bpm <= 0 {
			return 0, fmt.Errorf("tempo command reported non-positive bpm %q", m)
		}
		return bpm, nil
	}
	return 0, fmt.Errorf("no tempo value in output %q", out)
}
