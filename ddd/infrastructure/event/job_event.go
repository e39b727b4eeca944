package event

import (
	"time"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/gateway"
	"stem-service/ddd/domain/repo"
)

// NewJobEvent 把注册表变更转换为对外的事件载荷
func NewJobEvent(eventType repo.JobEventType, job *entity.JobEntity) gateway.JobEvent {
	return gateway.JobEvent{
		Type:      string(eventType),
		JobID:     job.JobID(),
		Status:    job.Status().String(),
		Message:   job.Message(),
		AudioName: job.AudioName(),
		Stems:     job.Stems(),
		At:        time.Now(),
	}
}
