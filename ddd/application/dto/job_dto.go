package dto

import (
	"time"

	"stem-service/ddd/domain/entity"
)

// JobAcceptedDto 任务受理响应
type JobAcceptedDto struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusDto 任务状态
type JobStatusDto struct {
	JobID           string            `json:"job_id"`
	Status          string            `json:"status"`
	Message         string            `json:"message"`
	Stems           map[string]string `json:"stems"`
	AudioName       string            `json:"audio_name"`
	CancelRequested bool              `json:"cancel_requested,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// JobDeletedDto 删除任务响应，任务不存在时同样返回
type JobDeletedDto struct {
	Status string `json:"status"`
}

// NewJobStatusDto 从实体创建DTO
func NewJobStatusDto(job *entity.JobEntity) *JobStatusDto {
	if job == nil {
		return nil
	}
	return &JobStatusDto{
		JobID:           job.JobID(),
		Status:          job.Status().String(),
		Message:         job.Message(),
		Stems:           job.Stems(),
		AudioName:       job.AudioName(),
		CancelRequested: job.CancelRequested(),
		CreatedAt:       job.CreatedAt(),
		UpdatedAt:       job.UpdatedAt(),
	}
}
