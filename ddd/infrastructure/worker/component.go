package worker

import (
	"context"
	"time"

	"stem-service/ddd/infrastructure/queue"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
	"stem-service/pkg/task"
)

// PipelineComponent 把工作器和队列组装成可由 task.Manager 管理的后台任务
type PipelineComponent struct {
	name    string
	queue   *queue.MemoryTaskQueue
	manager *WorkerManager
	grace   time.Duration
}

var _ task.BackgroundTask = (*PipelineComponent)(nil)

// NewPipelineComponent 创建流水线后台任务，grace 为停止时等待进行中任务的时长
func NewPipelineComponent(name string, q *queue.MemoryTaskQueue, manager *WorkerManager, grace time.Duration) *PipelineComponent {
	return &PipelineComponent{name: name, queue: q, manager: manager, grace: grace}
}

func (c *PipelineComponent) Name() string {
	return c.name
}

func (c *PipelineComponent) Start(ctx context.Context) error {
	if err := c.manager.StartAll(ctx); err != nil {
		return err
	}
	logger.Infof("pipeline component started name=%s", c.name)
	return nil
}

// Stop 先关闭队列拒绝新任务，等待已排队任务在 grace 内跑完，超时后终止进行中的外部工具
func (c *PipelineComponent) Stop() error {
	_ = c.queue.Close()

	if c.grace > 0 && !c.waitIdle(c.grace) {
		logger.Warnf("pipeline component grace period elapsed name=%s grace=%s pending=%d", c.name, c.grace, c.queue.Size())
	}
	err := c.manager.StopAll()

	drained := c.drain()
	logger.Infof("pipeline component stopped name=%s drained=%d", c.name, drained)
	return err
}

// waitIdle 等待队列清空且没有进行中的任务
func (c *PipelineComponent) waitIdle(grace time.Duration) bool {
	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.queue.Size() == 0 && c.running() == 0 {
			return true
		}
		select {
		case <-deadline.C:
			return false
		case <-ticker.C:
		}
	}
}

func (c *PipelineComponent) running() int {
	n := 0
	for _, s := range c.manager.GetAllStats() {
		n += s.CurrentlyRunning
	}
	return n
}

// drain 结束队列中尚未执行的任务句柄
func (c *PipelineComponent) drain() int {
	n := 0
	for {
		t, ok := c.queue.TryDequeue()
		if !ok {
			return n
		}
		t.Finish(errno.ErrQueueClosed)
		n++
	}
}
