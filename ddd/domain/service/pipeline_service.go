package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/domain/vo"
	"stem-service/pkg/config"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

// ErrJobCancelled 任务在阶段之间被取消
var ErrJobCancelled = errors.New(entity.JobMessageCancelled)

// PipelineService 分离流水线领域服务
type PipelineService interface {
	// Submit 把任务放入流水线队列，返回可等待的任务句柄
	Submit(ctx context.Context, jobID string, acquisition vo.Acquisition, stemCount vo.StemCount) (*entity.PipelineTask, error)

	// Run 同步执行一个流水线任务，由 worker 调用
	Run(ctx context.Context, task *entity.PipelineTask) error
}

// PipelineDependencies 流水线协作者
type PipelineDependencies struct {
	Registry   repo.JobRegistry
	Queue      port.PipelineQueue
	Separator  port.Separator
	Downloader port.Downloader
	Analyzer   port.Analyzer
	Tracks     repo.TrackRepository
	Locks      *TrackLocks
}

type pipelineServiceImpl struct {
	deps      PipelineDependencies
	storage   config.StorageConfig
	separator config.SeparatorConfig
	sem       *semaphore.Weighted
	builder   trackBuilder
}

// NewPipelineService 创建流水线领域服务
func NewPipelineService(deps PipelineDependencies, storage config.StorageConfig, separator config.SeparatorConfig) PipelineService {
	if deps.Locks == nil {
		deps.Locks = NewTrackLocks()
	}
	limit := separator.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	return &pipelineServiceImpl{
		deps:      deps,
		storage:   storage,
		separator: separator,
		sem:       semaphore.NewWeighted(int64(limit)),
		builder:   trackBuilder{analyzer: deps.Analyzer},
	}
}

// Submit 入队失败时任务直接置为 error
func (s *pipelineServiceImpl) Submit(ctx context.Context, jobID string, acquisition vo.Acquisition, stemCount vo.StemCount) (*entity.PipelineTask, error) {
	if err := acquisition.Validate(); err != nil {
		return nil, errno.NewBizError(errno.ErrAcquisitionRequired, err)
	}
	if !stemCount.IsValid() {
		return nil, errno.NewBizErrorf(errno.ErrInvalidStemCount, "num_stems=%d", stemCount.Int())
	}

	task := entity.NewPipelineTask(jobID, acquisition, stemCount)
	if err := s.deps.Queue.Enqueue(ctx, task); err != nil {
		s.fail(jobID, err)
		task.Finish(err)
		return nil, err
	}
	logger.Infof("pipeline task queued job_id=%s kind=%s stems=%d", jobID, acquisition.Kind, stemCount.Int())
	return task, nil
}

// Run 依次执行 获取音频 → 分离 → 发现产物 → 分析入库 → 完成
func (s *pipelineServiceImpl) Run(ctx context.Context, task *entity.PipelineTask) error {
	jobID := task.JobID()
	logger.Infof("pipeline started job_id=%s kind=%s stems=%d", jobID, task.Acquisition().Kind, task.StemCount().Int())

	if err := s.checkCancelled(jobID); err != nil {
		return s.fail(jobID, err)
	}

	audioPath, err := s.acquire(ctx, task)
	if err != nil {
		return s.fail(jobID, err)
	}
	if err := s.checkCancelled(jobID); err != nil {
		return s.fail(jobID, err)
	}

	baseName := vo.BaseName(audioPath)
	if _, err := s.deps.Registry.Update(jobID, func(j *entity.JobEntity) error {
		return j.StartProcessing(entity.JobMessageSeparating)
	}); err != nil {
		return s.fail(jobID, err)
	}

	unlock := s.deps.Locks.Lock(baseName)
	defer unlock()

	if err := s.separate(ctx, audioPath, task.StemCount()); err != nil {
		return s.fail(jobID, err)
	}
	if err := s.checkCancelled(jobID); err != nil {
		return s.fail(jobID, err)
	}

	outDir := filepath.Join(s.storage.OutputDir, baseName)
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		return s.fail(jobID, errno.ErrOutputDirMissing)
	}

	stems, files := s.discoverStems(outDir, baseName, task.StemCount())
	original := s.copyOriginal(audioPath, outDir)
	s.persistCatalog(ctx, jobID, baseName, outDir, task.StemCount(), files, original)

	if _, err := s.deps.Registry.Update(jobID, func(j *entity.JobEntity) error {
		return j.Complete(stems, baseName)
	}); err != nil {
		return err
	}
	logger.Infof("pipeline completed job_id=%s audio_name=%s stems=%d", jobID, baseName, len(stems))
	return nil
}

func (s *pipelineServiceImpl) acquire(ctx context.Context, task *entity.PipelineTask) (string, error) {
	acq := task.Acquisition()
	switch acq.Kind {
	case vo.AcquisitionUpload:
		if err := s.setMessage(task.JobID(), entity.JobMessageUploading); err != nil {
			return "", err
		}
		return acq.Path, requireFile(acq.Path)
	case vo.AcquisitionFetched:
		if err := s.setMessage(task.JobID(), entity.JobMessagePrefetched); err != nil {
			return "", err
		}
		return acq.Path, requireFile(acq.Path)
	case vo.AcquisitionURL:
		if err := s.setMessage(task.JobID(), entity.JobMessageDownloading); err != nil {
			return "", err
		}
		if s.deps.Downloader == nil {
			return "", errors.New("downloader is not configured")
		}
		dir := filepath.Join(s.storage.UploadDir, task.JobID())
		res, err := s.deps.Downloader.Download(ctx, acq.URL, dir)
		if err != nil {
			return "", err
		}
		return res.AudioPath, nil
	default:
		return "", errno.NewBizErrorf(errno.ErrAcquisitionRequired, "unknown acquisition kind %q", acq.Kind)
	}
}

// separate 受信号量限制，分离过程本身不可中断
func (s *pipelineServiceImpl) separate(ctx context.Context, audioPath string, stemCount vo.StemCount) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	if err := os.MkdirAll(s.storage.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	return s.deps.Separator.Separate(ctx, audioPath, s.storage.OutputDir, stemCount.Int())
}

// discoverStems 缺失的分离层被容忍
func (s *pipelineServiceImpl) discoverStems(outDir, baseName string, stemCount vo.StemCount) (map[string]string, []stemFile) {
	stems := make(map[string]string)
	var files []stemFile
	for _, name := range stemCount.StemNames() {
		filename := name + ".wav"
		if _, err := os.Stat(filepath.Join(outDir, filename)); err != nil {
			logger.Warnf("expected stem missing audio_name=%s stem=%s", baseName, name)
			continue
		}
		stems[name] = StemURL(baseName, name)
		files = append(files, stemFile{name: name, filename: filename})
	}
	return stems, files
}

// copyOriginal 复制源文件为 original.<ext>，失败只记录日志
func (s *pipelineServiceImpl) copyOriginal(audioPath, outDir string) string {
	ext := strings.ToLower(filepath.Ext(audioPath))
	if ext == "" {
		ext = ".audio"
	}
	name := originalPrefix + ext
	if err := copyFile(audioPath, filepath.Join(outDir, name)); err != nil {
		logger.Warnf("copy original failed src=%s dir=%s err=%v", audioPath, outDir, err)
		return ""
	}
	return name
}

// persistCatalog 遵循 CatalogPolicyArtifactFirst
func (s *pipelineServiceImpl) persistCatalog(ctx context.Context, jobID, baseName, outDir string, stemCount vo.StemCount, files []stemFile, original string) {
	if s.deps.Tracks == nil {
		return
	}
	exists, err := s.deps.Tracks.TrackExists(ctx, baseName)
	if err != nil {
		logger.Warnf("catalog lookup failed policy=%s job_id=%s track=%s err=%v", CatalogPolicyArtifactFirst, jobID, baseName, err)
		return
	}
	if exists {
		logger.Infof("track already catalogued job_id=%s track=%s", jobID, baseName)
		return
	}

	track := s.builder.build(ctx, baseName, outDir, stemCount.Int(), files, original)
	if err := s.deps.Tracks.CreateTrack(ctx, track); err != nil {
		logger.Warnf("catalog insert failed policy=%s job_id=%s track=%s err=%v", CatalogPolicyArtifactFirst, jobID, baseName, err)
		return
	}
	logger.Infof("track catalogued job_id=%s track=%s track_id=%d stems=%d", jobID, baseName, track.ID(), len(track.Stems()))
}

func (s *pipelineServiceImpl) checkCancelled(jobID string) error {
	job, ok := s.deps.Registry.Get(jobID)
	if !ok {
		return errno.ErrJobNotFound
	}
	if job.CancelRequested() {
		return ErrJobCancelled
	}
	return nil
}

func (s *pipelineServiceImpl) setMessage(jobID, message string) error {
	_, err := s.deps.Registry.Update(jobID, func(j *entity.JobEntity) error {
		return j.SetMessage(message)
	})
	return err
}

// fail 把错误原文写入任务信息，返回原错误
func (s *pipelineServiceImpl) fail(jobID string, cause error) error {
	logger.Error("pipeline failed", logger.Fields{"job_id": jobID, "error": cause.Error()})
	if _, err := s.deps.Registry.Update(jobID, func(j *entity.JobEntity) error {
		if j.Status().IsFinalStatus() {
			return nil
		}
		return j.Fail(cause.Error())
	}); err != nil && !errors.Is(err, errno.ErrJobNotFound) {
		logger.Warnf("record job failure failed job_id=%s err=%v", jobID, err)
	}
	return cause
}

// StemURL 分离层的静态访问路径
func StemURL(trackName, stemName string) string {
	return fmt.Sprintf("/output/%s/%s.wav", trackName, stemName)
}

func requireFile(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("audio file not found: %s", filepath.Base(p))
	}
	if info.IsDir() {
		return fmt.Errorf("audio path is a directory: %s", filepath.Base(p))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
