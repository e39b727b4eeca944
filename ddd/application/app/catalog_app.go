package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"stem-service/ddd/application/cqe"
	"stem-service/ddd/application/dto"
	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/gateway"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/domain/service"
	"stem-service/ddd/domain/vo"
	"stem-service/ddd/infrastructure/jobstore"
	"stem-service/pkg/config"
	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
	"stem-service/pkg/metrics"
)

// reconcileLockName 跨进程互斥的对账锁文件，位于输出根目录下
const reconcileLockName = ".reconcile.lock"

// CatalogApp 曲目、片段、循环的查询和维护
type CatalogApp interface {
	ListTracks(ctx context.Context) ([]*dto.TrackDto, error)
	GetTrack(ctx context.Context, req *cqe.IDCqe) (*dto.TrackDto, error)
	// DeleteTrack 删除记录（分离层级联）和输出目录
	DeleteTrack(ctx context.Context, req *cqe.IDCqe) error

	// CreateSample 同一文件名重复创建时覆盖文件并返回已有记录
	CreateSample(ctx context.Context, req *cqe.CreateSampleCqe) (*dto.SampleDto, error)
	ListSamples(ctx context.Context) ([]*dto.SampleDto, error)
	GetSample(ctx context.Context, req *cqe.IDCqe) (*dto.SampleDto, error)
	DeleteSample(ctx context.Context, req *cqe.IDCqe) error

	CreateLoop(ctx context.Context, req *cqe.CreateLoopCqe) (*dto.LoopDto, error)
	ListLoops(ctx context.Context) ([]*dto.LoopDto, error)
	GetLoop(ctx context.Context, req *cqe.IDCqe) (*dto.LoopDto, error)
	DeleteLoop(ctx context.Context, req *cqe.IDCqe) error

	// Reconcile 用磁盘产物补齐目录，同一时间只允许一个对账
	Reconcile(ctx context.Context) (*service.ReconcileReport, error)
}

// CatalogDependencies 目录应用服务协作者，Mirror 可以为空
type CatalogDependencies struct {
	Catalog    repo.CatalogRepository
	Derived    service.DerivedMediaService
	Reconciler service.CatalogReconciler
	Locks      *service.TrackLocks
	Mirror     gateway.StorageGateway
}

type catalogAppImpl struct {
	deps    CatalogDependencies
	storage config.StorageConfig
}

// NewCatalogApp 创建目录应用服务
func NewCatalogApp(deps CatalogDependencies, storage config.StorageConfig) CatalogApp {
	if deps.Locks == nil {
		deps.Locks = service.NewTrackLocks()
	}
	return &catalogAppImpl{deps: deps, storage: storage}
}

func (a *catalogAppImpl) ListTracks(ctx context.Context) ([]*dto.TrackDto, error) {
	tracks, err := a.deps.Catalog.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.TrackDto, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, dto.NewTrackDto(t, false))
	}
	return out, nil
}

func (a *catalogAppImpl) GetTrack(ctx context.Context, req *cqe.IDCqe) (*dto.TrackDto, error) {
	track, err := a.loadTrack(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewTrackDto(track, true), nil
}

// DeleteTrack 持有曲目锁，避免与正在写同名目录的流水线交错
func (a *catalogAppImpl) DeleteTrack(ctx context.Context, req *cqe.IDCqe) error {
	track, err := a.loadTrack(ctx, req.ID)
	if err != nil {
		return err
	}

	unlock := a.deps.Locks.Lock(track.Name())
	defer unlock()

	deleted, err := a.deps.Catalog.DeleteTrack(ctx, track.ID())
	if err != nil {
		return err
	}
	if !deleted {
		return errno.NewBizErrorf(errno.ErrTrackNotFound, "id=%d", req.ID)
	}

	dir := filepath.Join(a.storage.OutputDir, track.Name())
	if err := jobstore.RemoveUnder(a.storage.OutputDir, dir); err != nil {
		logger.Warnf("remove track directory failed track=%s err=%v", track.Name(), err)
	}
	logger.Infof("track deleted id=%d name=%s", track.ID(), track.Name())
	return nil
}

func (a *catalogAppImpl) CreateSample(ctx context.Context, req *cqe.CreateSampleCqe) (*dto.SampleDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := a.deps.Locks.Lock(req.TrackName)
	src, err := service.ResolveStemSource(a.storage.OutputDir, req.TrackName, req.StemName)
	if err != nil {
		unlock()
		return nil, err
	}
	file, err := a.deps.Derived.ExtractSegment(ctx, src, req.Start, req.End)
	unlock()
	if err != nil {
		return nil, err
	}

	sample, err := a.catalogSample(ctx, req, file)
	if err != nil {
		return nil, err
	}
	a.mirror(ctx, "samples", file.Path)
	return dto.NewSampleDto(sample), nil
}

func (a *catalogAppImpl) ListSamples(ctx context.Context) ([]*dto.SampleDto, error) {
	samples, err := a.deps.Catalog.ListSamples(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SampleDto, 0, len(samples))
	for _, s := range samples {
		out = append(out, dto.NewSampleDto(s))
	}
	return out, nil
}

func (a *catalogAppImpl) GetSample(ctx context.Context, req *cqe.IDCqe) (*dto.SampleDto, error) {
	sample, err := a.loadSample(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewSampleDto(sample), nil
}

// DeleteSample 只删除这一个片段，由它生成的循环不受影响
func (a *catalogAppImpl) DeleteSample(ctx context.Context, req *cqe.IDCqe) error {
	sample, err := a.loadSample(ctx, req.ID)
	if err != nil {
		return err
	}
	if _, err := a.deps.Catalog.DeleteSample(ctx, sample.ID()); err != nil {
		return err
	}
	a.removeDerived(ctx, "samples", a.storage.SamplesDir, sample.Filename())
	logger.Infof("sample deleted id=%d file=%s", sample.ID(), sample.Filename())
	return nil
}

func (a *catalogAppImpl) CreateLoop(ctx context.Context, req *cqe.CreateLoopCqe) (*dto.LoopDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	src, start, end, err := a.loopSource(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock := a.deps.Locks.Lock(src.TrackName)
	file, err := a.deps.Derived.CreateLoop(ctx, src, start, end, req.LoopCount)
	unlock()
	if err != nil {
		return nil, err
	}

	loop, err := a.catalogLoop(ctx, vo.SourceType(req.SourceType), src, file)
	if err != nil {
		return nil, err
	}
	a.mirror(ctx, "loops", file.Path)
	return dto.NewLoopDto(loop), nil
}

func (a *catalogAppImpl) ListLoops(ctx context.Context) ([]*dto.LoopDto, error) {
	loops, err := a.deps.Catalog.ListLoops(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.LoopDto, 0, len(loops))
	for _, l := range loops {
		out = append(out, dto.NewLoopDto(l))
	}
	return out, nil
}

func (a *catalogAppImpl) GetLoop(ctx context.Context, req *cqe.IDCqe) (*dto.LoopDto, error) {
	loop, err := a.loadLoop(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewLoopDto(loop), nil
}

func (a *catalogAppImpl) DeleteLoop(ctx context.Context, req *cqe.IDCqe) error {
	loop, err := a.loadLoop(ctx, req.ID)
	if err != nil {
		return err
	}
	if _, err := a.deps.Catalog.DeleteLoop(ctx, loop.ID()); err != nil {
		return err
	}
	a.removeDerived(ctx, "loops", a.storage.LoopsDir, loop.Filename())
	logger.Infof("loop deleted id=%d file=%s", loop.ID(), loop.Filename())
	return nil
}

// Reconcile 锁文件被其他进程持有时返回 409
func (a *catalogAppImpl) Reconcile(ctx context.Context) (*service.ReconcileReport, error) {
	if err := os.MkdirAll(a.storage.OutputDir, 0o755); err != nil {
		return nil, errno.NewBizError(errno.ErrReconcileFailed, err)
	}
	lock := flock.New(filepath.Join(a.storage.OutputDir, reconcileLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errno.NewBizError(errno.ErrReconcileFailed, fmt.Errorf("acquire lock: %w", err))
	}
	if !ok {
		return nil, errno.ErrReconcileBusy
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warnf("release reconcile lock failed err=%v", err)
		}
	}()

	report, err := a.deps.Reconciler.Reconcile(ctx)
	if report != nil {
		recordReconcile(report)
	}
	if err != nil {
		return report, errno.NewBizError(errno.ErrReconcileFailed, err)
	}
	return report, nil
}

func recordReconcile(r *service.ReconcileReport) {
	metrics.ReconcileRecordsTotal.WithLabelValues("track").Add(float64(r.TracksCreated))
	metrics.ReconcileRecordsTotal.WithLabelValues("stem").Add(float64(r.StemsCreated))
	metrics.ReconcileRecordsTotal.WithLabelValues("sample").Add(float64(r.SamplesCreated))
	metrics.ReconcileRecordsTotal.WithLabelValues("loop").Add(float64(r.LoopsCreated))
	metrics.ReconcileErrorsTotal.Add(float64(r.Errors))
}

// loopSource 片段来源的 Offset 为片段起点，start/end 缺省取片段范围
func (a *catalogAppImpl) loopSource(ctx context.Context, req *cqe.CreateLoopCqe) (service.DerivedSource, float64, float64, error) {
	if vo.SourceType(req.SourceType) == vo.SourceTypeStem {
		src, err := service.ResolveStemSource(a.storage.OutputDir, req.TrackName, req.StemName)
		if err != nil {
			return service.DerivedSource{}, 0, 0, err
		}
		return src, *req.Start, *req.End, nil
	}

	sample, err := a.loadSample(ctx, req.SampleID)
	if err != nil {
		return service.DerivedSource{}, 0, 0, err
	}
	start, end := sample.StartTime(), sample.EndTime()
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil {
		end = *req.End
	}
	src := service.DerivedSource{
		Path:      filepath.Join(a.storage.SamplesDir, sample.Filename()),
		TrackName: sample.TrackName(),
		StemName:  sample.StemName(),
		Offset:    sample.StartTime(),
		End:       sample.EndTime(),
	}
	return src, start, end, nil
}

func (a *catalogAppImpl) catalogSample(ctx context.Context, req *cqe.CreateSampleCqe, file *service.DerivedFile) (*entity.SampleEntity, error) {
	existing, err := a.deps.Catalog.GetSampleByFilename(ctx, file.Filename)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := vo.SampleName{TrackName: req.TrackName, StemName: req.StemName, StartTime: file.StartTime, EndTime: file.EndTime}
	sample := entity.NewSampleEntity(name)
	if err := a.deps.Catalog.CreateSample(ctx, sample); err != nil {
		if errors.Is(err, errno.ErrDuplicateFilename) {
			return a.deps.Catalog.GetSampleByFilename(ctx, file.Filename)
		}
		return nil, err
	}
	return sample, nil
}

func (a *catalogAppImpl) catalogLoop(ctx context.Context, sourceType vo.SourceType, src service.DerivedSource, file *service.DerivedFile) (*entity.LoopEntity, error) {
	existing, err := a.deps.Catalog.GetLoopByFilename(ctx, file.Filename)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := vo.LoopName{
		SampleName: vo.SampleName{TrackName: src.TrackName, StemName: src.StemName, StartTime: file.StartTime, EndTime: file.EndTime},
		LoopCount:  file.LoopCount,
	}
	loop := entity.NewLoopEntity(sourceType, name)
	if err := a.deps.Catalog.CreateLoop(ctx, loop); err != nil {
		if errors.Is(err, errno.ErrDuplicateFilename) {
			return a.deps.Catalog.GetLoopByFilename(ctx, file.Filename)
		}
		return nil, err
	}
	return loop, nil
}

func (a *catalogAppImpl) loadTrack(ctx context.Context, id uint64) (*entity.TrackEntity, error) {
	track, err := a.deps.Catalog.GetTrackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, errno.NewBizErrorf(errno.ErrTrackNotFound, "id=%d", id)
	}
	return track, nil
}

func (a *catalogAppImpl) loadSample(ctx context.Context, id uint64) (*entity.SampleEntity, error) {
	sample, err := a.deps.Catalog.GetSampleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, errno.NewBizErrorf(errno.ErrSampleNotFound, "id=%d", id)
	}
	return sample, nil
}

func (a *catalogAppImpl) loadLoop(ctx context.Context, id uint64) (*entity.LoopEntity, error) {
	loop, err := a.deps.Catalog.GetLoopByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loop == nil {
		return nil, errno.NewBizErrorf(errno.ErrLoopNotFound, "id=%d", id)
	}
	return loop, nil
}

// mirror 镜像失败不影响本地结果
func (a *catalogAppImpl) mirror(ctx context.Context, prefix, localPath string) {
	if a.deps.Mirror == nil {
		return
	}
	key := prefix + "/" + filepath.Base(localPath)
	if _, err := a.deps.Mirror.MirrorFile(ctx, localPath, key, "audio/wav"); err != nil {
		logger.Warnf("mirror derived file failed key=%s err=%v", key, err)
	}
}

func (a *catalogAppImpl) removeDerived(ctx context.Context, prefix, dir, filename string) {
	if err := os.Remove(filepath.Join(dir, filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnf("remove derived file failed file=%s err=%v", filename, err)
	}
	if a.deps.Mirror == nil {
		return
	}
	if err := a.deps.Mirror.RemoveObject(ctx, prefix+"/"+filename); err != nil {
		logger.Warnf("remove mirrored object failed key=%s/%s err=%v", prefix, filename, err)
	}
}
