package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/repo"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

// MemoryJobRegistry 基于内存的任务注册表
//
// 进程重启后任务丢失，目录对账器负责修复已落盘的产物。
// 观察者在锁内被调用，实现不能阻塞，也不能回调注册表。
type MemoryJobRegistry struct {
	mu        sync.RWMutex
	jobs      map[string]*entity.JobEntity
	cleaner   repo.JobCleaner
	observers []repo.JobObserver
}

var _ repo.JobRegistry = (*MemoryJobRegistry)(nil)

// NewMemoryJobRegistry 创建任务注册表，cleaner 可以为空
func NewMemoryJobRegistry(cleaner repo.JobCleaner, observers ...repo.JobObserver) *MemoryJobRegistry {
	return &MemoryJobRegistry{
		jobs:      make(map[string]*entity.JobEntity),
		cleaner:   cleaner,
		observers: observers,
	}
}

// Create 创建任务
func (r *MemoryJobRegistry) Create() *entity.JobEntity {
	job := entity.NewJobEntity()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID()] = job
	r.notify(repo.JobEventCreated, job)
	return job.Clone()
}

// Get 获取任务副本
func (r *MemoryJobRegistry) Get(jobID string) (*entity.JobEntity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Update 在副本上执行 mutate，成功且状态转换合法时才提交
func (r *MemoryJobRegistry) Update(jobID string, mutate repo.JobMutator) (*entity.JobEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[jobID]
	if !ok {
		return nil, errno.NewBizErrorf(errno.ErrJobNotFound, "job_id=%s", jobID)
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		var biz *errno.BizError
		if errors.As(err, &biz) {
			return nil, err
		}
		return nil, errno.NewBizError(errno.ErrInvalidJobStatus, err)
	}
	if next.Status() != current.Status() && !current.Status().CanTransitionTo(next.Status()) {
		return nil, errno.NewBizErrorf(errno.ErrInvalidJobStatus, "%s -> %s", current.Status(), next.Status())
	}

	r.jobs[jobID] = next
	r.notify(repo.JobEventUpdated, next)
	return next.Clone(), nil
}

// Delete 删除任务并清理磁盘产物，条目先于清理移除
func (r *MemoryJobRegistry) Delete(ctx context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	if ok {
		delete(r.jobs, jobID)
		r.notify(repo.JobEventDeleted, job)
	}
	r.mu.Unlock()

	if !ok {
		return false, nil
	}
	if r.cleaner == nil {
		return true, nil
	}
	if err := r.cleaner.CleanupJob(ctx, job); err != nil {
		return true, fmt.Errorf("cleanup job %s: %w", jobID, err)
	}
	return true, nil
}

// List 按创建时间倒序返回所有任务
func (r *MemoryJobRegistry) List() []*entity.JobEntity {
	r.mu.RLock()
	out := make([]*entity.JobEntity, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out
}

// Len 当前任务数量
func (r *MemoryJobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *MemoryJobRegistry) notify(event repo.JobEventType, job *entity.JobEntity) {
	for _, o := range r.observers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("job observer panicked event=%s job_id=%s panic=%v", event, job.JobID(), rec)
				}
			}()
			o.OnJobChanged(event, job.Clone())
		}()
	}
}
