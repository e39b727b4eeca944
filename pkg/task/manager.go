package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stem-service/pkg/logger"
)

// BackgroundTask represents a long-running background process (worker pool, reconciler, registry lease).
type BackgroundTask interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Manager starts registered tasks in order and stops them in reverse.
type Manager struct {
	tasks   []BackgroundTask
	started []BackgroundTask
	mu      sync.Mutex
	cancel  context.CancelFunc
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds a background task; call it during assembly before StartAll.
func (m *Manager) Register(task BackgroundTask) {
	if task == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// StartAll starts all registered tasks once. If one fails, the tasks already
// started are stopped before the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	for _, t := range m.tasks {
		if err := t.Start(runCtx); err != nil {
			m.stopLocked()
			return fmt.Errorf("start %s: %w", t.Name(), err)
		}
		m.started = append(m.started, t)
		logger.Infof("background task started name=%s", t.Name())
	}
	return nil
}

// StopAll stops running tasks in reverse start order.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		t := m.started[i]
		if err := t.Stop(); err != nil {
			logger.Warnf("background task stop failed name=%s err=%v", t.Name(), err)
			errs = append(errs, fmt.Errorf("stop %s: %w", t.Name(), err))
			continue
		}
		logger.Infof("background task stopped name=%s", t.Name())
	}
	m.started = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return errors.Join(errs...)
}
