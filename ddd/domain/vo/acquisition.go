package vo

import (
	"errors"
	"path/filepath"
	"strings"
)

// AcquisitionKind 音频来源类型
type AcquisitionKind string

const (
	// AcquisitionUpload 已上传到任务目录的本地文件
	AcquisitionUpload AcquisitionKind = "upload"
	// AcquisitionURL 需要在流水线中下载的远程地址
	AcquisitionURL AcquisitionKind = "url"
	// AcquisitionFetched 之前通过 fetch 接口下载好的本地文件
	AcquisitionFetched AcquisitionKind = "fetched"
)

// Acquisition 描述流水线如何拿到本地音频
type Acquisition struct {
	Kind AcquisitionKind
	Path string
	URL  string
}

// NewUploadAcquisition 已上传文件
func NewUploadAcquisition(path string) Acquisition {
	return Acquisition{Kind: AcquisitionUpload, Path: path}
}

// NewURLAcquisition 远程地址
func NewURLAcquisition(url string) Acquisition {
	return Acquisition{Kind: AcquisitionURL, URL: strings.TrimSpace(url)}
}

// NewFetchedAcquisition 预先下载好的文件
func NewFetchedAcquisition(path string) Acquisition {
	return Acquisition{Kind: AcquisitionFetched, Path: path}
}

// Validate 检查来源字段完整
func (a Acquisition) Validate() error {
	switch a.Kind {
	case AcquisitionUpload, AcquisitionFetched:
		if a.Path == "" {
			return errors.New("audio path is required")
		}
	case AcquisitionURL:
		if a.URL == "" {
			return errors.New("url is required")
		}
	default:
		return errors.New("unknown acquisition kind: " + string(a.Kind))
	}
	return nil
}

// BaseName 去掉扩展名的文件名，作为曲目名和输出目录名
func BaseName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
