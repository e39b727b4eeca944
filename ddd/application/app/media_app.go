package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"stem-service/ddd/application/cqe"
	"stem-service/ddd/application/dto"
	"stem-service/ddd/domain/port"
	"stem-service/pkg/config"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

// MediaApp 与任务无关的音频工具：远程下载和分析
type MediaApp interface {
	// Fetch 下载远程音频并估算 BPM，结果可作为 fetched_audio_path 提交
	Fetch(ctx context.Context, req *cqe.FetchCqe) (*dto.FetchResultDto, error)

	// Analyze 分析上传的音频，临时文件总是被删除
	Analyze(ctx context.Context, req *cqe.AnalyzeCqe) (*dto.AnalysisDto, error)

	// Close 停止缓存过期协程
	Close()
}

type mediaAppImpl struct {
	downloader port.Downloader
	analyzer   port.Analyzer
	storage    config.StorageConfig
	cache      *ttlcache.Cache[string, *dto.FetchResultDto]
}

// NewMediaApp cacheTTL 为 0 时每次都重新下载
func NewMediaApp(downloader port.Downloader, analyzer port.Analyzer, storage config.StorageConfig, cacheTTL time.Duration) MediaApp {
	a := &mediaAppImpl{
		downloader: downloader,
		analyzer:   analyzer,
		storage:    storage,
	}
	if cacheTTL > 0 {
		a.cache = ttlcache.New(
			ttlcache.WithTTL[string, *dto.FetchResultDto](cacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *dto.FetchResultDto](),
		)
		go a.cache.Start()
	}
	return a
}

// Fetch 失败时删除本次的下载目录
func (a *mediaAppImpl) Fetch(ctx context.Context, req *cqe.FetchCqe) (*dto.FetchResultDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if cached := a.cached(req.URL); cached != nil {
		logger.Infof("fetch served from cache url=%s job_id=%s", req.URL, cached.JobID)
		return cached, nil
	}

	jobID := uuid.New().String()
	dir := filepath.Join(a.storage.UploadDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errno.NewBizError(errno.ErrUploadError, err)
	}

	res, err := a.downloader.Download(ctx, req.URL, dir)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warnf("remove fetch dir failed dir=%s err=%v", dir, rmErr)
		}
		return nil, errno.NewBizError(errno.ErrDownloadFailed, err)
	}

	filename := filepath.Base(res.AudioPath)
	out := &dto.FetchResultDto{
		JobID:     jobID,
		AudioPath: res.AudioPath,
		AudioURL:  fmt.Sprintf("/uploads/%s/%s", jobID, filename),
		Filename:  filename,
		Title:     res.Title,
		Artist:    res.Artist,
		Thumbnail: res.Thumbnail,
		BPM:       a.tempo(ctx, res.AudioPath),
	}
	if a.cache != nil {
		a.cache.Set(req.URL, out, ttlcache.DefaultTTL)
	}
	logger.Info("audio fetched", logger.Fields{"job_id": jobID, "filename": filename, "title": res.Title})
	return out, nil
}

// Analyze 时长失败视为分析失败，BPM 失败返回 null
func (a *mediaAppImpl) Analyze(ctx context.Context, req *cqe.AnalyzeCqe) (*dto.AnalysisDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "analyze-*"+filepath.Ext(cqe.SafeUploadName(req.File.Filename)))
	if err != nil {
		return nil, errno.NewBizError(errno.ErrUploadError, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove analyze temp failed path=%s err=%v", tmpPath, err)
		}
	}()

	if _, err := io.Copy(tmp, req.File.Content); err != nil {
		_ = tmp.Close()
		return nil, errno.NewBizError(errno.ErrUploadError, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errno.NewBizError(errno.ErrUploadError, err)
	}

	duration, err := a.analyzer.Duration(ctx, tmpPath)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrAnalysisFailed, err)
	}
	return &dto.AnalysisDto{BPM: a.tempo(ctx, tmpPath), Duration: duration}, nil
}

func (a *mediaAppImpl) Close() {
	if a.cache != nil {
		a.cache.Stop()
	}
}

// cached 缓存的文件已被删除时视为未命中
func (a *mediaAppImpl) cached(url string) *dto.FetchResultDto {
	if a.cache == nil {
		return nil
	}
	item := a.cache.Get(url)
	if item == nil {
		return nil
	}
	v := item.Value()
	if _, err := os.Stat(v.AudioPath); err != nil {
		a.cache.Delete(url)
		return nil
	}
	return v
}

func (a *mediaAppImpl) tempo(ctx context.Context, path string) *float64 {
	bpm, err := a.analyzer.Tempo(ctx, path)
	if err != nil {
		logger.Warnf("tempo estimation failed file=%s err=%v", filepath.Base(path), err)
		return nil
	}
	return &bpm
}
