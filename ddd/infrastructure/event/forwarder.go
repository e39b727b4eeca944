package event

import (
	"context"
	"sync"
	"time"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/gateway"
	"stem-service/ddd/domain/repo"
	"stem-service/pkg/logger"
	"stem-service/pkg/task"
)

const (
	defaultForwarderBuffer = 256
	sinkTimeout            = 5 * time.Second
)

// JobEventForwarder 异步把任务变更推送到 kafka 和 redis
//
// 注册表在锁内回调观察者，所以这里只做非阻塞入队，缓冲区满时丢弃事件。
// 两个下游都是镜像，丢失不影响任务本身。
type JobEventForwarder struct {
	publisher gateway.JobEventPublisher
	snapshots gateway.JobSnapshotStore

	events  chan gateway.JobEvent
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	dropped uint64
}

var (
	_ repo.JobObserver    = (*JobEventForwarder)(nil)
	_ task.BackgroundTask = (*JobEventForwarder)(nil)
)

// NewJobEventForwarder publisher 和 snapshots 可以为空
func NewJobEventForwarder(publisher gateway.JobEventPublisher, snapshots gateway.JobSnapshotStore, buffer int) *JobEventForwarder {
	if buffer <= 0 {
		buffer = defaultForwarderBuffer
	}
	return &JobEventForwarder{
		publisher: publisher,
		snapshots: snapshots,
		events:    make(chan gateway.JobEvent, buffer),
	}
}

func (f *JobEventForwarder) Name() string {
	return "job-event-forwarder"
}

func (f *JobEventForwarder) OnJobChanged(eventType repo.JobEventType, job *entity.JobEntity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	select {
	case f.events <- NewJobEvent(eventType, job):
	default:
		f.dropped++
		logger.Warnf("job event dropped job_id=%s type=%s dropped=%d", job.JobID(), eventType, f.dropped)
	}
}

func (f *JobEventForwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return nil
	}
	f.running = true
	f.wg.Add(1)
	go f.loop()
	logger.Infof("job event forwarder started publisher=%t snapshots=%t", f.publisher != nil, f.snapshots != nil)
	return nil
}

// Stop 停止接收新事件，把缓冲区里的事件发送完再返回
func (f *JobEventForwarder) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	close(f.events)
	f.mu.Unlock()

	f.wg.Wait()
	logger.Info("job event forwarder stopped")
	return nil
}

// Dropped 因缓冲区满而丢弃的事件数
func (f *JobEventForwarder) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *JobEventForwarder) loop() {
	defer f.wg.Done()
	for ev := range f.events {
		f.deliver(ev)
	}
}

func (f *JobEventForwarder) deliver(ev gateway.JobEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if f.snapshots != nil {
		var err error
		if ev.Type == string(repo.JobEventDeleted) {
			err = f.snapshots.DeleteJobSnapshot(ctx, ev.JobID)
		} else {
			err = f.snapshots.SaveJobSnapshot(ctx, ev)
		}
		if err != nil {
			logger.Warnf("job snapshot failed job_id=%s err=%v", ev.JobID, err)
		}
	}
	if f.publisher != nil {
		if err := f.publisher.PublishJobEvent(ctx, ev); err != nil {
			logger.Warnf("job event publish failed job_id=%s type=%s err=%v", ev.JobID, ev.Type, err)
		}
	}
}
