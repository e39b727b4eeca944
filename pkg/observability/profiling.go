package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/grafana/pyroscope-go"

	"stem-service/pkg/config"
	"stem-service/pkg/logger"
)

// Profiler 把 pyroscope 持续性能分析包装为后台任务
type Profiler struct {
	cfg         config.ProfilingConfig
	application string
	profiler    *pyroscope.Profiler
}

func NewProfiler(cfg config.ProfilingConfig, application string) *Profiler {
	return &Profiler{cfg: cfg, application: application}
}

func (p *Profiler) Name() string {
	return "pyroscope"
}

func (p *Profiler) Start(ctx context.Context) error {
	if p.cfg.ServerAddress == "" {
		return errors.New("profiling server_address is required")
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: p.application,
		ServerAddress:   p.cfg.ServerAddress,
		Logger:          nil,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return fmt.Errorf("start pyroscope: %w", err)
	}
	p.profiler = profiler
	logger.Infof("pyroscope profiling started server=%s app=%s", p.cfg.ServerAddress, p.application)
	return nil
}

func (p *Profiler) Stop() error {
	if p.profiler == nil {
		return nil
	}
	err := p.profiler.Stop()
	p.profiler = nil
	return err
}
