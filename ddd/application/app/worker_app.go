package app

import (
	"context"
	"sort"

	"stem-service/ddd/application/dto"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/infrastructure/queue"
	"stem-service/ddd/infrastructure/worker"
)

// WorkerApp 流水线 worker 状态查询
type WorkerApp interface {
	// GetWorkerStatistics 获取 worker 和队列统计
	GetWorkerStatistics(ctx context.Context) (*dto.WorkerStatisticsDto, error)
}

type workerAppImpl struct {
	manager  *worker.WorkerManager
	queue    *queue.MemoryTaskQueue
	registry repo.JobRegistry
}

// NewWorkerApp 创建Worker应用服务
func NewWorkerApp(manager *worker.WorkerManager, q *queue.MemoryTaskQueue, registry repo.JobRegistry) WorkerApp {
	return &workerAppImpl{
		manager:  manager,
		queue:    q,
		registry: registry,
	}
}

// GetWorkerStatistics 按 worker ID 排序输出
func (w *workerAppImpl) GetWorkerStatistics(ctx context.Context) (*dto.WorkerStatisticsDto, error) {
	out := &dto.WorkerStatisticsDto{}
	for id, s := range w.manager.GetAllStats() {
		out.Workers = append(out.Workers, dto.WorkerStatusDto{
			ID:               id,
			ProcessedTasks:   s.ProcessedTasks,
			SuccessfulTasks:  s.SuccessfulTasks,
			FailedTasks:      s.FailedTasks,
			SkippedTasks:     s.SkippedTasks,
			CurrentlyRunning: s.CurrentlyRunning,
			StartTime:        s.StartTime,
			LastTaskTime:     s.LastTaskTime,
		})
	}
	sort.Slice(out.Workers, func(i, j int) bool { return out.Workers[i].ID < out.Workers[j].ID })

	m := w.queue.GetMetrics()
	out.Queue = dto.QueueStatusDto{
		Size:         w.queue.Size(),
		Capacity:     m.MaxSize,
		EnqueueCount: m.EnqueueCount,
		DequeueCount: m.DequeueCount,
		RejectCount:  m.RejectCount,
		Closed:       w.queue.IsClosed(),
	}
	out.JobsTracked = w.registry.Len()
	return out, nil
}
