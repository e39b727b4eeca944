package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/domain/vo"
	"stem-service/pkg/config"
	"stem-service/pkg/logger"
)

// ReconcileReport 一次对账的统计
type ReconcileReport struct {
	TracksCreated     int           `json:"tracks_created"`
	TracksBackfilled  int           `json:"tracks_backfilled"`
	StemsCreated      int           `json:"stems_created"`
	SamplesCreated    int           `json:"samples_created"`
	LoopsCreated      int           `json:"loops_created"`
	Skipped           int           `json:"skipped"`
	Errors            int           `json:"errors"`
	Elapsed           time.Duration `json:"elapsed_ns"`
	UnrecognizedFiles []string      `json:"unrecognized_files,omitempty"`
}

// CatalogReconciler 用磁盘上的产物补齐元数据存储，可重复执行
type CatalogReconciler interface {
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

type catalogReconcilerImpl struct {
	catalog repo.CatalogRepository
	storage config.StorageConfig
	locks   *TrackLocks
	builder trackBuilder
}

// NewCatalogReconciler 创建对账服务，locks 与流水线共用
func NewCatalogReconciler(catalog repo.CatalogRepository, analyzer port.Analyzer, storage config.StorageConfig, locks *TrackLocks) CatalogReconciler {
	if locks == nil {
		locks = NewTrackLocks()
	}
	return &catalogReconcilerImpl{
		catalog: catalog,
		storage: storage,
		locks:   locks,
		builder: trackBuilder{analyzer: analyzer},
	}
}

// Reconcile 单个文件出错只计数，不中断整体
func (r *catalogReconcilerImpl) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	report := &ReconcileReport{}

	r.reconcileTracks(ctx, report)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	r.reconcileSamples(ctx, report)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	r.reconcileLoops(ctx, report)

	report.Elapsed = time.Since(start)
	logger.Info("catalog reconciled", logger.Fields{
		"tracks_created":    report.TracksCreated,
		"tracks_backfilled": report.TracksBackfilled,
		"stems_created":     report.StemsCreated,
		"samples_created":   report.SamplesCreated,
		"loops_created":     report.LoopsCreated,
		"skipped":           report.Skipped,
		"errors":            report.Errors,
		"elapsed":           report.Elapsed.String(),
	})
	return report, ctx.Err()
}

func (r *catalogReconcilerImpl) reconcileTracks(ctx context.Context, report *ReconcileReport) {
	entries, ok := readDir(r.storage.OutputDir, report)
	if !ok {
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if !e.IsDir() {
			continue
		}
		r.reconcileTrackDir(ctx, e.Name(), report)
	}
}

func (r *catalogReconcilerImpl) reconcileTrackDir(ctx context.Context, name string, report *ReconcileReport) {
	unlock := r.locks.Lock(name)
	defer unlock()

	dir := filepath.Join(r.storage.OutputDir, name)
	original := findOriginal(dir)

	track, err := r.catalog.GetTrackByName(ctx, name)
	if err != nil {
		logger.Warnf("reconcile track lookup failed track=%s err=%v", name, err)
		report.Errors++
		return
	}
	if track != nil {
		if track.OriginalFilename() == nil && original != "" {
			if err := r.catalog.UpdateOriginalFilename(ctx, name, original); err != nil {
				logger.Warnf("reconcile backfill original failed track=%s err=%v", name, err)
				report.Errors++
				return
			}
			report.TracksBackfilled++
		}
		return
	}

	files, err := listStemFiles(dir)
	if err != nil {
		logger.Warnf("reconcile list stems failed dir=%s err=%v", dir, err)
		report.Errors++
		return
	}
	if len(files) == 0 {
		logger.Debug("reconcile skip directory without stems", logger.Fields{"dir": dir})
		report.Skipped++
		return
	}

	track = r.builder.build(ctx, name, dir, len(files), files, original)
	if err := r.catalog.CreateTrack(ctx, track); err != nil {
		logger.Warnf("reconcile create track failed track=%s err=%v", name, err)
		report.Errors++
		return
	}
	report.TracksCreated++
	report.StemsCreated += len(track.Stems())
}

func (r *catalogReconcilerImpl) reconcileSamples(ctx context.Context, report *ReconcileReport) {
	entries, ok := readDir(r.storage.SamplesDir, report)
	if !ok {
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.IsDir() {
			continue
		}
		filename := e.Name()
		name, err := vo.ParseSampleName(filename)
		if err != nil {
			logger.Debug("reconcile skip unrecognized sample", logger.Fields{"file": filename})
			report.Skipped++
			report.UnrecognizedFiles = append(report.UnrecognizedFiles, filepath.Join(r.storage.SamplesDir, filename))
			continue
		}
		exists, err := r.catalog.SampleExists(ctx, filename)
		if err != nil {
			logger.Warnf("reconcile sample lookup failed file=%s err=%v", filename, err)
			report.Errors++
			continue
		}
		if exists {
			continue
		}
		if err := r.catalog.CreateSample(ctx, entity.NewSampleEntity(name)); err != nil {
			logger.Warnf("reconcile create sample failed file=%s err=%v", filename, err)
			report.Errors++
			continue
		}
		report.SamplesCreated++
	}
}

// reconcileLoops 只凭文件名无法区分来源，统一记为 stem
func (r *catalogReconcilerImpl) reconcileLoops(ctx context.Context, report *ReconcileReport) {
	entries, ok := readDir(r.storage.LoopsDir, report)
	if !ok {
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.IsDir() {
			continue
		}
		filename := e.Name()
		name, err := vo.ParseLoopName(filename)
		if err != nil {
			logger.Debug("reconcile skip unrecognized loop", logger.Fields{"file": filename})
			report.Skipped++
			report.UnrecognizedFiles = append(report.UnrecognizedFiles, filepath.Join(r.storage.LoopsDir, filename))
			continue
		}
		exists, err := r.catalog.LoopExists(ctx, filename)
		if err != nil {
			logger.Warnf("reconcile loop lookup failed file=%s err=%v", filename, err)
			report.Errors++
			continue
		}
		if exists {
			continue
		}
		if err := r.catalog.CreateLoop(ctx, entity.NewLoopEntity(vo.SourceTypeStem, name)); err != nil {
			logger.Warnf("reconcile create loop failed file=%s err=%v", filename, err)
			report.Errors++
			continue
		}
		report.LoopsCreated++
	}
}

// readDir 目录不存在视为空
func readDir(dir string, report *ReconcileReport) ([]os.DirEntry, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("reconcile read dir failed dir=%s err=%v", dir, err)
			report.Errors++
		}
		return nil, false
	}
	return entries, true
}
