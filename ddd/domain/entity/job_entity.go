package entity

import (
	"time"

	"github.com/google/uuid"

	"stem-service/ddd/domain/vo"
)

const (
	JobMessageInitializing = "Initializing..."
	JobMessageUploading    = "Uploading file..."
	JobMessagePrefetched   = "Using pre-fetched audio..."
	JobMessageDownloading  = "Downloading audio from URL..."
	JobMessageSeparating   = "Separating audio into stems..."
	JobMessageCompleted    = "Audio separation complete!"
	JobMessageCancelled    = "Job cancelled"
)

// JobEntity 分离任务实体，只存在于内存中
type JobEntity struct {
	jobID           string            // 任务ID
	status          vo.JobStatus      // 任务状态
	message         string            // 进度或错误信息
	stems           map[string]string // 分离层名 -> 相对访问URL，完成后填充
	audioName       string            // 曲目名，也是输出目录名
	uploadDir       string            // 任务专属上传目录
	cancelRequested bool              // 是否请求取消
	createdAt       time.Time
	updatedAt       time.Time
	completedAt     *time.Time
}

// NewJobEntity 创建新的分离任务实体
func NewJobEntity() *JobEntity {
	now := time.Now()
	return &JobEntity{
		jobID:     uuid.New().String(),
		status:    vo.JobStatusPending,
		message:   JobMessageInitializing,
		stems:     make(map[string]string),
		createdAt: now,
		updatedAt: now,
	}
}

// Getters
func (j *JobEntity) JobID() string           { return j.jobID }
func (j *JobEntity) Status() vo.JobStatus    { return j.status }
func (j *JobEntity) Message() string         { return j.message }
func (j *JobEntity) AudioName() string       { return j.audioName }
func (j *JobEntity) UploadDir() string       { return j.uploadDir }
func (j *JobEntity) CancelRequested() bool   { return j.cancelRequested }
func (j *JobEntity) CreatedAt() time.Time    { return j.createdAt }
func (j *JobEntity) UpdatedAt() time.Time    { return j.updatedAt }
func (j *JobEntity) CompletedAt() *time.Time { return j.completedAt }

// Stems 返回分离层URL的副本
func (j *JobEntity) Stems() map[string]string {
	out := make(map[string]string, len(j.stems))
	for k, v := range j.stems {
		out[k] = v
	}
	return out
}

// SetMessage 更新进度信息，终态不可修改
func (j *JobEntity) SetMessage(message string) error {
	if j.status.IsFinalStatus() {
		return NewDomainError("cannot update message of job in final status: " + j.status.String())
	}
	j.message = message
	j.updatedAt = time.Now()
	return nil
}

// SetUploadDir 记录任务上传目录，用于清理
func (j *JobEntity) SetUploadDir(dir string) {
	j.uploadDir = dir
	j.updatedAt = time.Now()
}

// SetAudioName 记录曲目名
func (j *JobEntity) SetAudioName(name string) {
	j.audioName = name
	j.updatedAt = time.Now()
}

// RequestCancel 标记取消，流水线在阶段之间检查
func (j *JobEntity) RequestCancel() error {
	if j.status.IsFinalStatus() {
		return NewDomainError("cannot cancel job in final status: " + j.status.String())
	}
	j.cancelRequested = true
	j.updatedAt = time.Now()
	return nil
}

// StartProcessing 开始分离
func (j *JobEntity) StartProcessing(message string) error {
	if !j.status.CanTransitionTo(vo.JobStatusProcessing) {
		return NewDomainError("cannot start processing job in current status: " + j.status.String())
	}
	j.status = vo.JobStatusProcessing
	j.message = message
	j.updatedAt = time.Now()
	return nil
}

// Complete 完成任务
func (j *JobEntity) Complete(stems map[string]string, audioName string) error {
	if !j.status.CanTransitionTo(vo.JobStatusCompleted) {
		return NewDomainError("cannot complete job in current status: " + j.status.String())
	}
	now := time.Now()
	j.status = vo.JobStatusCompleted
	j.message = JobMessageCompleted
	j.stems = make(map[string]string, len(stems))
	for k, v := range stems {
		j.stems[k] = v
	}
	j.audioName = audioName
	j.completedAt = &now
	j.updatedAt = now
	return nil
}

// Fail 任务失败，message 原样展示给客户端
func (j *JobEntity) Fail(message string) error {
	if !j.status.CanTransitionTo(vo.JobStatusError) {
		return NewDomainError("cannot fail job in current status: " + j.status.String())
	}
	now := time.Now()
	j.status = vo.JobStatusError
	j.message = message
	j.completedAt = &now
	j.updatedAt = now
	return nil
}

// Clone 深拷贝，注册表对外只暴露副本
func (j *JobEntity) Clone() *JobEntity {
	c := *j
	c.stems = j.Stems()
	if j.completedAt != nil {
		t := *j.completedAt
		c.completedAt = &t
	}
	return &c
}

// DomainError 领域错误
type DomainError struct {
	message string
}

func NewDomainError(message string) *DomainError {
	return &DomainError{message: message}
}

func (e *DomainError) Error() string {
	return e.message
}
