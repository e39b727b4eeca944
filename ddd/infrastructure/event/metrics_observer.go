package event

import (
	"sync"
	"time"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/repo"
	"stem-service/pkg/metrics"
)

// JobMetricsObserver 把任务变更折算为 prometheus 指标
type JobMetricsObserver struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

var _ repo.JobObserver = (*JobMetricsObserver)(nil)

func NewJobMetricsObserver() *JobMetricsObserver {
	return &JobMetricsObserver{inFlight: make(map[string]struct{})}
}

func (o *JobMetricsObserver) OnJobChanged(event repo.JobEventType, job *entity.JobEntity) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := job.JobID()
	switch event {
	case repo.JobEventCreated:
		o.inFlight[id] = struct{}{}
		metrics.JobsCreatedTotal.Inc()
		metrics.JobsInFlight.Inc()
	case repo.JobEventUpdated:
		if !job.Status().IsFinalStatus() {
			return
		}
		if _, ok := o.inFlight[id]; !ok {
			return
		}
		delete(o.inFlight, id)
		metrics.JobsInFlight.Dec()
		metrics.JobsFinishedTotal.WithLabelValues(job.Status().String()).Inc()
		metrics.JobDuration.Observe(time.Since(job.CreatedAt()).Seconds())
	case repo.JobEventDeleted:
		if _, ok := o.inFlight[id]; ok {
			delete(o.inFlight, id)
			metrics.JobsInFlight.Dec()
		}
	}
}

// InFlight 当前计入的未结束任务数
func (o *JobMetricsObserver) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inFlight)
}
