package cqe

import (
	"io"
	"path/filepath"
	"strings"

	"stem-service/ddd/domain/vo"
	"stem-service/pkg/errno"
)

// DefaultNumStems 未指定 num_stems 时的分离层数
const DefaultNumStems = 2

// UploadFile 客户端上传的文件
type UploadFile struct {
	Filename string
	Content  io.Reader
}

// SubmitJobCqe 提交分离任务，file > fetched_audio_path > url
type SubmitJobCqe struct {
	File             *UploadFile `form:"-"`
	URL              string      `form:"url"`
	FetchedAudioPath string      `form:"fetched_audio_path"`
	NumStems         int         `form:"num_stems"`
}

// Validate 补全默认值并校验
func (c *SubmitJobCqe) Validate() error {
	c.URL = strings.TrimSpace(c.URL)
	c.FetchedAudioPath = strings.TrimSpace(c.FetchedAudioPath)
	if c.NumStems == 0 {
		c.NumStems = DefaultNumStems
	}
	if _, err := vo.NewStemCount(c.NumStems); err != nil {
		return errno.NewBizError(errno.ErrInvalidStemCount, err)
	}
	if c.File == nil && c.FetchedAudioPath == "" && c.URL == "" {
		return errno.ErrAcquisitionRequired
	}
	if c.File != nil {
		if err := ValidateUploadName(c.File.Filename); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUploadName 上传文件名只取最后一段，空名和 .. 被拒绝
func ValidateUploadName(name string) error {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "" || base == "/" || base == "." || base == ".." {
		return errno.NewBizErrorf(errno.ErrFileNameIllegal, "filename %q", name)
	}
	return nil
}

// SafeUploadName 返回上传文件名去掉目录后的部分
func SafeUploadName(name string) string {
	return filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
}

// JobIDCqe 按任务ID操作
type JobIDCqe struct {
	JobID string `uri:"job_id" binding:"required"`
}

func (c *JobIDCqe) Validate() error {
	if strings.TrimSpace(c.JobID) == "" {
		return errno.ErrMissingParam
	}
	return nil
}
