package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/domain/service"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

// PipelineWorker 分离流水线工作器接口
type PipelineWorker interface {
	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器，进行中的外部工具会被终止
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedTasks   uint64    `json:"processed_tasks"`
	SuccessfulTasks  uint64    `json:"successful_tasks"`
	FailedTasks      uint64    `json:"failed_tasks"`
	SkippedTasks     uint64    `json:"skipped_tasks"`
	CurrentlyRunning int       `json:"currently_running"`
	StartTime        time.Time `json:"start_time"`
	LastTaskTime     time.Time `json:"last_task_time"`
}

// pipelineWorkerImpl 流水线工作器实现
type pipelineWorkerImpl struct {
	id          string
	taskQueue   port.PipelineQueue
	pipeline    service.PipelineService
	registry    repo.JobRegistry
	workerCount int
	running     bool
	cancel      context.CancelFunc
	stats       WorkerStats
	mu          sync.RWMutex
	wg          sync.WaitGroup
}

// NewPipelineWorker 创建流水线工作器
func NewPipelineWorker(
	id string,
	taskQueue port.PipelineQueue,
	pipeline service.PipelineService,
	registry repo.JobRegistry,
	workerCount int,
) PipelineWorker {
	if workerCount <= 0 {
		workerCount = 1
	}

	return &pipelineWorkerImpl{
		id:          id,
		taskQueue:   taskQueue,
		pipeline:    pipeline,
		registry:    registry,
		workerCount: workerCount,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

// Start 启动工作器
func (w *pipelineWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	logger.Infof("starting pipeline worker id=%s goroutines=%d", w.id, w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(workerCtx, i)
	}
	return nil
}

// Stop 停止工作器
func (w *pipelineWorkerImpl) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	logger.Infof("stopping pipeline worker id=%s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	// 等待时不持锁，workerLoop 更新统计需要拿锁
	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	logger.Infof("pipeline worker stopped id=%s", w.id)
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *pipelineWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *pipelineWorkerImpl) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// workerLoop 工作器主循环
func (w *pipelineWorkerImpl) workerLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger.Debugf("pipeline worker %s-%d started", w.id, workerID)
	defer logger.Debugf("pipeline worker %s-%d stopped", w.id, workerID)

	for {
		task, err := w.taskQueue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errno.ErrQueueClosed) {
				return
			}
			logger.Warnf("pipeline worker %s-%d failed to dequeue task: %v", w.id, workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if task == nil {
			continue
		}
		w.processTask(ctx, task, workerID)
	}
}

// processTask 处理单个任务，任务句柄总会被 Finish
func (w *pipelineWorkerImpl) processTask(ctx context.Context, task *entity.PipelineTask, workerID int) {
	w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning++
		stats.LastTaskTime = time.Now()
	})
	defer w.updateStats(func(stats *WorkerStats) {
		stats.CurrentlyRunning--
		stats.ProcessedTasks++
	})

	job, ok := w.registry.Get(task.JobID())
	if !ok {
		logger.Infof("pipeline worker %s-%d skip deleted job %s", w.id, workerID, task.JobID())
		w.updateStats(func(stats *WorkerStats) { stats.SkippedTasks++ })
		task.Finish(errno.ErrJobNotFound)
		return
	}
	if job.Status().IsFinalStatus() {
		logger.Infof("pipeline worker %s-%d skip terminal job %s status=%s", w.id, workerID, task.JobID(), job.Status())
		w.updateStats(func(stats *WorkerStats) { stats.SkippedTasks++ })
		task.Finish(nil)
		return
	}

	err := w.runSafely(ctx, task)
	task.Finish(err)
	if err != nil {
		logger.Warnf("pipeline worker %s-%d job %s failed: %v", w.id, workerID, task.JobID(), err)
		w.updateStats(func(stats *WorkerStats) { stats.FailedTasks++ })
		return
	}
	logger.Infof("pipeline worker %s-%d job %s done wait=%s", w.id, workerID, task.JobID(), time.Since(task.EnqueuedAt()).Round(time.Millisecond))
	w.updateStats(func(stats *WorkerStats) { stats.SuccessfulTasks++ })
}

// runSafely 流水线 panic 时把任务置为 error，不拖垮整个工作器
func (w *pipelineWorkerImpl) runSafely(ctx context.Context, task *entity.PipelineTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			logger.Error("pipeline panic", logger.Fields{"job_id": task.JobID(), "panic": fmt.Sprint(r)})
			_, _ = w.registry.Update(task.JobID(), func(j *entity.JobEntity) error {
				if j.Status().IsFinalStatus() {
					return nil
				}
				return j.Fail(err.Error())
			})
		}
	}()
	return w.pipeline.Run(ctx, task)
}

// updateStats 更新统计信息
func (w *pipelineWorkerImpl) updateStats(updateFunc func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updateFunc(&w.stats)
}

// WorkerManager 工作器管理器
type WorkerManager struct {
	workers map[string]PipelineWorker
	order   []string
	mu      sync.RWMutex
}

// NewWorkerManager 创建工作器管理器
func NewWorkerManager() *WorkerManager {
	return &WorkerManager{
		workers: make(map[string]PipelineWorker),
	}
}

// AddWorker 添加工作器
func (wm *WorkerManager) AddWorker(id string, worker PipelineWorker) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if _, ok := wm.workers[id]; !ok {
		wm.order = append(wm.order, id)
	}
	wm.workers[id] = worker
}

// StartAll 启动所有工作器
func (wm *WorkerManager) StartAll(ctx context.Context) error {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	for _, id := range wm.order {
		if err := wm.workers[id].Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker %s: %w", id, err)
		}
	}
	return nil
}

// StopAll 停止所有工作器
func (wm *WorkerManager) StopAll() error {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	var errs []error
	for i := len(wm.order) - 1; i >= 0; i-- {
		if err := wm.workers[wm.order[i]].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetAllStats 获取所有工作器的统计信息
func (wm *WorkerManager) GetAllStats() map[string]WorkerStats {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	stats := make(map[string]WorkerStats, len(wm.workers))
	for id, worker := range wm.workers {
		stats[id] = worker.GetStats()
	}
	return stats
}
