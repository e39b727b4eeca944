package queue

import (
	"context"
	"errors"
	"sync"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/pkg/errno"
)

// MemoryTaskQueue 基于内存的流水线任务队列
type MemoryTaskQueue struct {
	queue   chan *entity.PipelineTask
	closed  bool
	mu      sync.RWMutex
	metrics *QueueMetrics
}

var _ port.PipelineQueue = (*MemoryTaskQueue)(nil)

// QueueMetrics 队列指标
type QueueMetrics struct {
	EnqueueCount uint64
	DequeueCount uint64
	RejectCount  uint64
	MaxSize      int
	CurrentSize  int
	mu           sync.RWMutex
}

// NewMemoryTaskQueue 创建内存任务队列
func NewMemoryTaskQueue(capacity int) *MemoryTaskQueue {
	if capacity <= 0 {
		capacity = 100 // 默认容量
	}

	return &MemoryTaskQueue{
		queue: make(chan *entity.PipelineTask, capacity),
		metrics: &QueueMetrics{
			MaxSize: capacity,
		},
	}
}

// Enqueue 入队任务，队列满时立即返回 ErrQueueFull
func (q *MemoryTaskQueue) Enqueue(ctx context.Context, task *entity.PipelineTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return errno.ErrQueueClosed
	}

	if task == nil {
		return errors.New("task cannot be nil")
	}

	select {
	case q.queue <- task:
		q.updateMetrics(func(m *QueueMetrics) { m.EnqueueCount++ })
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		q.updateMetrics(func(m *QueueMetrics) { m.RejectCount++ })
		return errno.ErrQueueFull
	}
}

// Dequeue 出队任务（阻塞），不持有锁等待，Close 可以随时打断
func (q *MemoryTaskQueue) Dequeue(ctx context.Context) (*entity.PipelineTask, error) {
	select {
	case task, ok := <-q.queue:
		if !ok {
			return nil, errno.ErrQueueClosed
		}
		q.updateMetrics(func(m *QueueMetrics) { m.DequeueCount++ })
		return task, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryDequeue 非阻塞出队，队列为空或已取完时 ok=false
func (q *MemoryTaskQueue) TryDequeue() (*entity.PipelineTask, bool) {
	select {
	case task, ok := <-q.queue:
		if !ok || task == nil {
			return nil, false
		}
		q.updateMetrics(func(m *QueueMetrics) { m.DequeueCount++ })
		return task, true
	default:
		return nil, false
	}
}

// Size 获取队列大小
func (q *MemoryTaskQueue) Size() int {
	return len(q.queue)
}

// Close 关闭队列，已入队的任务仍可被取出
func (q *MemoryTaskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.queue)
	return nil
}

// IsClosed 检查队列是否已关闭
func (q *MemoryTaskQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// GetMetrics 获取队列指标
func (q *MemoryTaskQueue) GetMetrics() QueueMetrics {
	q.metrics.mu.RLock()
	defer q.metrics.mu.RUnlock()

	return QueueMetrics{
		EnqueueCount: q.metrics.EnqueueCount,
		DequeueCount: q.metrics.DequeueCount,
		RejectCount:  q.metrics.RejectCount,
		MaxSize:      q.metrics.MaxSize,
		CurrentSize:  q.Size(),
	}
}

func (q *MemoryTaskQueue) updateMetrics(fn func(*QueueMetrics)) {
	q.metrics.mu.Lock()
	defer q.metrics.mu.Unlock()
	fn(q.metrics)
}
