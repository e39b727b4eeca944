package cqe

import (
	"strings"

	"stem-service/pkg/errno"
)

// FetchCqe 下载远程音频
type FetchCqe struct {
	URL string `form:"url" json:"url"`
}

func (c *FetchCqe) Validate() error {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		return errno.NewBizErrorf(errno.ErrMissingParam, "url is required")
	}
	return nil
}

// AnalyzeCqe 分析上传的音频
type AnalyzeCqe struct {
	File *UploadFile
}

func (c *AnalyzeCqe) Validate() error {
	if c.File == nil {
		return errno.NewBizErrorf(errno.ErrMissingParam, "file is required")
	}
	return ValidateUploadName(c.File.Filename)
}
