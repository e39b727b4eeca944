package jobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/repo"
	"stem-service/pkg/logger"
)

// DirCleaner 删除任务的上传目录，以及已完成任务的输出目录
type DirCleaner struct {
	uploadRoot string
	outputRoot string
}

var _ repo.JobCleaner = (*DirCleaner)(nil)

// NewDirCleaner 创建目录清理器
func NewDirCleaner(uploadRoot, outputRoot string) *DirCleaner {
	return &DirCleaner{uploadRoot: uploadRoot, outputRoot: outputRoot}
}

// CleanupJob 清理 uploads/<jobId> 和 output/<audioName>
func (c *DirCleaner) CleanupJob(_ context.Context, job *entity.JobEntity) error {
	var errs []error

	uploadDir := job.UploadDir()
	if uploadDir == "" {
		uploadDir = filepath.Join(c.uploadRoot, job.JobID())
	}
	if err := RemoveUnder(c.uploadRoot, uploadDir); err != nil {
		errs = append(errs, err)
	}

	if name := job.AudioName(); name != "" {
		if err := RemoveUnder(c.outputRoot, filepath.Join(c.outputRoot, name)); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Infof("job workspace cleaned job_id=%s audio_name=%s", job.JobID(), job.AudioName())
	return nil
}

// RemoveUnder 删除 root 下的子目录，root 本身和 root 之外的路径会被拒绝，目录不存在不算错误
func RemoveUnder(root, dir string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s outside %s", dir, root)
	}
	if err := os.RemoveAll(absDir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
