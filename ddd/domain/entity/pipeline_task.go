package entity

import (
	"sync"
	"time"

	"stem-service/ddd/domain/vo"
)

// PipelineTask 排队中的分离流水线任务，同时作为调用方等待结果的句柄
type PipelineTask struct {
	jobID       string
	acquisition vo.Acquisition
	stemCount   vo.StemCount
	enqueuedAt  time.Time

	done chan struct{}
	once sync.Once
	err  error
}

// NewPipelineTask 创建流水线任务
func NewPipelineTask(jobID string, acquisition vo.Acquisition, stemCount vo.StemCount) *PipelineTask {
	return &PipelineTask{
		jobID:       jobID,
		acquisition: acquisition,
		stemCount:   stemCount,
		enqueuedAt:  time.Now(),
		done:        make(chan struct{}),
	}
}

func (t *PipelineTask) JobID() string               { return t.jobID }
func (t *PipelineTask) Acquisition() vo.Acquisition { return t.acquisition }
func (t *PipelineTask) StemCount() vo.StemCount     { return t.stemCount }
func (t *PipelineTask) EnqueuedAt() time.Time       { return t.enqueuedAt }

// Done 任务结束后关闭
func (t *PipelineTask) Done() <-chan struct{} {
	return t.done
}

// Err 任务结束后的错误，Done 关闭前读取没有意义
func (t *PipelineTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Finish 标记结束，只有第一次调用生效
func (t *PipelineTask) Finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}
