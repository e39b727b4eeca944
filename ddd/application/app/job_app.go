package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"stem-service/ddd/application/cqe"
	"stem-service/ddd/application/dto"
	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/domain/service"
	"stem-service/ddd/domain/vo"
	"stem-service/pkg/config"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

const jobStatusStarted = "started"

// JobApp 分离任务应用服务接口
type JobApp interface {
	// SubmitJob 受理上传、URL 或预下载音频，异步执行分离
	SubmitJob(ctx context.Context, req *cqe.SubmitJobCqe) (*dto.JobAcceptedDto, error)

	// GetJob 查询任务状态
	GetJob(ctx context.Context, req *cqe.JobIDCqe) (*dto.JobStatusDto, error)

	// ListJobs 列出当前进程内的任务
	ListJobs(ctx context.Context) ([]*dto.JobStatusDto, error)

	// DeleteJob 删除任务及其目录，任务不存在时同样成功
	DeleteJob(ctx context.Context, req *cqe.JobIDCqe) (*dto.JobDeletedDto, error)

	// CancelJob 请求取消，正在运行的外部工具不会被打断
	CancelJob(ctx context.Context, req *cqe.JobIDCqe) (*dto.JobStatusDto, error)
}

type jobAppImpl struct {
	registry repo.JobRegistry
	pipeline service.PipelineService
	storage  config.StorageConfig
}

// NewJobApp 创建分离任务应用服务
func NewJobApp(registry repo.JobRegistry, pipeline service.PipelineService, storage config.StorageConfig) JobApp {
	return &jobAppImpl{
		registry: registry,
		pipeline: pipeline,
		storage:  storage,
	}
}

// SubmitJob 校验失败时不创建任务
func (a *jobAppImpl) SubmitJob(ctx context.Context, req *cqe.SubmitJobCqe) (*dto.JobAcceptedDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stemCount, _ := vo.NewStemCount(req.NumStems)

	var fetched string
	if req.File == nil && req.FetchedAudioPath != "" {
		p, err := a.resolveFetched(req.FetchedAudioPath)
		if err != nil {
			return nil, err
		}
		fetched = p
	}

	job := a.registry.Create()
	jobID := job.JobID()
	uploadDir := filepath.Join(a.storage.UploadDir, jobID)
	if _, err := a.registry.Update(jobID, func(j *entity.JobEntity) error {
		j.SetUploadDir(uploadDir)
		return nil
	}); err != nil {
		return nil, err
	}

	var acq vo.Acquisition
	switch {
	case req.File != nil:
		path, err := a.saveUpload(uploadDir, req.File)
		if err != nil {
			a.discard(ctx, jobID)
			return nil, err
		}
		acq = vo.NewUploadAcquisition(path)
	case fetched != "":
		acq = vo.NewFetchedAcquisition(fetched)
	default:
		acq = vo.NewURLAcquisition(req.URL)
	}

	if _, err := a.pipeline.Submit(ctx, jobID, acq, stemCount); err != nil {
		return nil, err
	}

	logger.Info("job accepted", logger.Fields{
		"job_id":    jobID,
		"kind":      string(acq.Kind),
		"num_stems": stemCount.Int(),
	})
	return &dto.JobAcceptedDto{JobID: jobID, Status: jobStatusStarted}, nil
}

// GetJob 查询任务
func (a *jobAppImpl) GetJob(ctx context.Context, req *cqe.JobIDCqe) (*dto.JobStatusDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job, ok := a.registry.Get(req.JobID)
	if !ok {
		return nil, errno.NewBizErrorf(errno.ErrJobNotFound, "job_id=%s", req.JobID)
	}
	return dto.NewJobStatusDto(job), nil
}

// ListJobs 新任务在前
func (a *jobAppImpl) ListJobs(ctx context.Context) ([]*dto.JobStatusDto, error) {
	jobs := a.registry.List()
	out := make([]*dto.JobStatusDto, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, dto.NewJobStatusDto(j))
	}
	return out, nil
}

// DeleteJob 清理失败只记录日志
func (a *jobAppImpl) DeleteJob(ctx context.Context, req *cqe.JobIDCqe) (*dto.JobDeletedDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	found, err := a.registry.Delete(ctx, req.JobID)
	if err != nil {
		logger.Warnf("job cleanup incomplete job_id=%s err=%v", req.JobID, err)
	}
	if found {
		logger.Infof("job deleted job_id=%s", req.JobID)
	}
	return &dto.JobDeletedDto{Status: "deleted"}, nil
}

// CancelJob 终态任务返回 409
func (a *jobAppImpl) CancelJob(ctx context.Context, req *cqe.JobIDCqe) (*dto.JobStatusDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job, err := a.registry.Update(req.JobID, func(j *entity.JobEntity) error {
		return j.RequestCancel()
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("job cancel requested job_id=%s status=%s", job.JobID(), job.Status())
	return dto.NewJobStatusDto(job), nil
}

// resolveFetched 预下载文件必须存在且位于上传根目录下
func (a *jobAppImpl) resolveFetched(p string) (string, error) {
	absRoot, err := filepath.Abs(a.storage.UploadDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errno.NewBizError(errno.ErrInvalidParam, err)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", errno.NewBizErrorf(errno.ErrInvalidParam, "pre-fetched audio must be under %s", a.storage.UploadDir)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", errno.NewBizErrorf(errno.ErrInvalidParam, "pre-fetched audio file not found")
	}
	return abs, nil
}

func (a *jobAppImpl) saveUpload(dir string, file *cqe.UploadFile) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errno.NewBizError(errno.ErrUploadError, err)
	}
	path := filepath.Join(dir, cqe.SafeUploadName(file.Filename))
	out, err := os.Create(path)
	if err != nil {
		return "", errno.NewBizError(errno.ErrUploadError, err)
	}
	if _, err := io.Copy(out, file.Content); err != nil {
		_ = out.Close()
		return "", errno.NewBizError(errno.ErrUploadError, fmt.Errorf("write %s: %w", filepath.Base(path), err))
	}
	if err := out.Close(); err != nil {
		return "", errno.NewBizError(errno.ErrUploadError, err)
	}
	return path, nil
}

// discard 保存上传失败时移除刚创建的任务
func (a *jobAppImpl) discard(ctx context.Context, jobID string) {
	if _, err := a.registry.Delete(ctx, jobID); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("discard job failed job_id=%s err=%v", jobID, err)
	}
}
