package repo

import (
	"context"

	"stem-service/ddd/domain/entity"
)

// JobMutator 在注册表锁内修改任务副本，返回错误时修改被丢弃
type JobMutator func(job *entity.JobEntity) error

// JobRegistry 分离任务注册表，进程内唯一的任务状态来源
type JobRegistry interface {
	// Create 创建 pending 状态的任务
	Create() *entity.JobEntity

	// Get 获取任务副本，found=false 表示任务不存在
	Get(jobID string) (job *entity.JobEntity, found bool)

	// Update 原子地修改任务，非法的状态转换会被拒绝
	Update(jobID string, mutate JobMutator) (*entity.JobEntity, error)

	// Delete 删除任务并清理其工作目录，任务不存在时 found=false
	Delete(ctx context.Context, jobID string) (found bool, err error)

	// List 返回所有任务快照
	List() []*entity.JobEntity

	// Len 当前登记的任务数量
	Len() int
}

// JobEventType 任务变更类型
type JobEventType string

const (
	JobEventCreated JobEventType = "created"
	JobEventUpdated JobEventType = "updated"
	JobEventDeleted JobEventType = "deleted"
)

// JobObserver 接收任务变更通知，只做镜像，不能回写注册表
type JobObserver interface {
	OnJobChanged(event JobEventType, job *entity.JobEntity)
}

// JobCleaner 删除任务时清理磁盘产物
type JobCleaner interface {
	CleanupJob(ctx context.Context, job *entity.JobEntity) error
}
