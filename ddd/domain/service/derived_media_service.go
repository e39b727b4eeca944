package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/vo"
	"stem-service/pkg/config"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

// DerivedSource 衍生文件的来源。Offset 是来源文件在原曲中的起点，
// 分离层和原始文件为 0，片段文件为片段的 start。End 是来源在原曲中的终点，
// 片段文件为片段的 end，0 表示长度未知不做上限检查
type DerivedSource struct {
	Path      string
	TrackName string
	StemName  string
	Offset    float64
	End       float64
}

// DerivedFile 生成的衍生文件
type DerivedFile struct {
	Path      string
	Filename  string
	StartTime float64
	EndTime   float64
	LoopCount int
	Duration  float64
}

// DerivedMediaService 片段截取和循环合成，只做文件变换，不入库
type DerivedMediaService interface {
	ExtractSegment(ctx context.Context, src DerivedSource, start, end float64) (*DerivedFile, error)
	CreateLoop(ctx context.Context, src DerivedSource, start, end float64, loopCount int) (*DerivedFile, error)
}

type derivedMediaServiceImpl struct {
	transcoder port.MediaTranscoder
	storage    config.StorageConfig
}

// NewDerivedMediaService 创建衍生媒体服务
func NewDerivedMediaService(transcoder port.MediaTranscoder, storage config.StorageConfig) DerivedMediaService {
	return &derivedMediaServiceImpl{transcoder: transcoder, storage: storage}
}

// ExtractSegment 截取 [start, end) 到 samples 目录，同名文件直接覆盖
func (s *derivedMediaServiceImpl) ExtractSegment(ctx context.Context, src DerivedSource, start, end float64) (*DerivedFile, error) {
	name, err := s.prepare(src, start, end)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(s.storage.SamplesDir, name.Filename())
	if err := s.trim(ctx, src, name, out); err != nil {
		return nil, err
	}

	logger.Infof("sample extracted file=%s duration=%.2f", name.Filename(), name.Duration())
	return &DerivedFile{
		Path:      out,
		Filename:  name.Filename(),
		StartTime: name.StartTime,
		EndTime:   name.EndTime,
		Duration:  name.Duration(),
	}, nil
}

// CreateLoop 先截取到临时文件，再重复 loopCount-1 次，临时文件总是被删除
func (s *derivedMediaServiceImpl) CreateLoop(ctx context.Context, src DerivedSource, start, end float64, loopCount int) (*DerivedFile, error) {
	if loopCount < vo.MinLoopCount {
		return nil, errno.NewBizErrorf(errno.ErrInvalidLoopCount, "loop_count=%d, need at least %d", loopCount, vo.MinLoopCount)
	}
	sample, err := s.prepare(src, start, end)
	if err != nil {
		return nil, err
	}
	name := vo.LoopName{SampleName: sample, LoopCount: loopCount}

	if err := os.MkdirAll(s.storage.LoopsDir, 0o755); err != nil {
		return nil, err
	}
	scratch := filepath.Join(s.storage.LoopsDir, ".segment-"+uuid.New().String()+".wav")
	defer func() {
		if err := os.Remove(scratch); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove loop scratch failed path=%s err=%v", scratch, err)
		}
	}()

	if err := s.trim(ctx, src, sample, scratch); err != nil {
		return nil, err
	}

	out := filepath.Join(s.storage.LoopsDir, name.Filename())
	if err := s.transcoder.Replicate(ctx, scratch, out, loopCount-1); err != nil {
		return nil, errno.NewBizError(errno.ErrToolFailed, err)
	}

	logger.Infof("loop created file=%s loops=%d duration=%.2f", name.Filename(), loopCount, name.Duration())
	return &DerivedFile{
		Path:      out,
		Filename:  name.Filename(),
		StartTime: name.StartTime,
		EndTime:   name.EndTime,
		LoopCount: loopCount,
		Duration:  name.Duration(),
	}, nil
}

// prepare 时间按文件名精度舍入后再校验，保证文件名能被对账解析回相同的值
func (s *derivedMediaServiceImpl) prepare(src DerivedSource, start, end float64) (vo.SampleName, error) {
	start, end = vo.RoundCentis(start), vo.RoundCentis(end)
	if _, err := vo.NewTimeRange(start, end); err != nil {
		return vo.SampleName{}, errno.NewBizError(errno.ErrInvalidTimeRange, err)
	}
	if start < src.Offset {
		return vo.SampleName{}, errno.NewBizErrorf(errno.ErrInvalidTimeRange, "start %.2f is before source offset %.2f", start, src.Offset)
	}
	if src.End > 0 && end > src.End {
		return vo.SampleName{}, errno.NewBizErrorf(errno.ErrInvalidTimeRange, "end %.2f is after source end %.2f", end, src.End)
	}

	name := vo.SampleName{TrackName: src.TrackName, StemName: src.StemName, StartTime: start, EndTime: end}
	if err := name.Validate(); err != nil {
		return vo.SampleName{}, errno.NewBizError(errno.ErrFileNameIllegal, err)
	}

	info, err := os.Stat(src.Path)
	if err != nil || info.IsDir() {
		return vo.SampleName{}, errno.NewBizErrorf(errno.ErrNotFound, "source file %s", filepath.Base(src.Path))
	}
	return name, nil
}

func (s *derivedMediaServiceImpl) trim(ctx context.Context, src DerivedSource, name vo.SampleName, out string) error {
	if err := s.transcoder.Trim(ctx, src.Path, out, name.StartTime-src.Offset, name.Duration()); err != nil {
		return errno.NewBizError(errno.ErrToolFailed, err)
	}
	return nil
}

// ResolveStemSource 定位曲目目录下的分离层文件，stemName 为 original 时使用源文件副本
func ResolveStemSource(outputDir, trackName, stemName string) (DerivedSource, error) {
	if strings.ContainsAny(trackName+stemName, `/\`) || strings.Contains(trackName, "..") || strings.Contains(stemName, "..") {
		return DerivedSource{}, errno.NewBizErrorf(errno.ErrFileNameIllegal, "track=%q stem=%q", trackName, stemName)
	}
	dir := filepath.Join(outputDir, trackName)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return DerivedSource{}, errno.NewBizErrorf(errno.ErrTrackNotFound, "track %s", trackName)
	}

	filename := stemName + ".wav"
	if stemName == originalPrefix {
		filename = findOriginal(dir)
	}
	path := filepath.Join(dir, filename)
	if info, err := os.Stat(path); filename == "" || err != nil || info.IsDir() {
		return DerivedSource{}, errno.NewBizErrorf(errno.ErrStemNotFound, "track %s stem %s", trackName, stemName)
	}
	return DerivedSource{Path: path, TrackName: trackName, StemName: stemName}, nil
}
