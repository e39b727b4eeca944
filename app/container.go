package app

import (
	"context"
	"fmt"
	"time"

	"stem-service/ddd/application/app"
	"stem-service/ddd/domain/gateway"
	"stem-service/ddd/domain/service"
	"stem-service/ddd/infrastructure/cache"
	"stem-service/ddd/infrastructure/database/persistence"
	"stem-service/ddd/infrastructure/event"
	"stem-service/ddd/infrastructure/executor"
	"stem-service/ddd/infrastructure/jobstore"
	"stem-service/ddd/infrastructure/queue"
	"stem-service/ddd/infrastructure/storage"
	"stem-service/ddd/infrastructure/worker"
	"stem-service/internal/resource"
	"stem-service/pkg/config"
	"stem-service/pkg/logger"
	"stem-service/pkg/observability"
	"stem-service/pkg/registry"
	"stem-service/pkg/task"
)

const (
	serviceName          = "stem-service"
	forwarderBuffer      = 256
	pipelineComponentKey = "pipeline"
)

// Container 进程级依赖，serve 和一次性命令共用同一份组装
type Container struct {
	Config    *config.Config
	Resources *resource.Resources
	Tasks     *task.Manager

	JobApp     app.JobApp
	MediaApp   app.MediaApp
	CatalogApp app.CatalogApp
	WorkerApp  app.WorkerApp
}

// NewContainer 打开资源并组装应用服务，后台任务只注册不启动
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	res, err := resource.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open resources: %w", err)
	}

	c := &Container{Config: cfg, Resources: res, Tasks: task.NewManager()}
	if err := c.assemble(); err != nil {
		_ = res.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) assemble() error {
	cfg := c.Config
	res := c.Resources

	ffmpeg := executor.NewFFmpegExecutor(cfg.FFmpeg)
	analyzer := executor.NewAudioAnalyzer(cfg.Analyzer, ffmpeg)
	separator := executor.NewSpleeterSeparator(cfg.Separator)
	downloader := executor.NewYtDlpDownloader(cfg.Downloader)

	catalog := persistence.NewCatalogRepository(res.DB)
	locks := service.NewTrackLocks()

	var publisher gateway.JobEventPublisher
	if res.Kafka != nil {
		publisher = event.NewKafkaJobEventPublisher(res.Kafka, cfg.Kafka.Topics.JobEvents)
	}
	var snapshots gateway.JobSnapshotStore
	if res.Redis != nil {
		snapshots = cache.NewRedisJobSnapshotStore(res.Redis.Raw(), cfg.Redis.KeyPrefix, cfg.Redis.JobTTL)
	}
	forwarder := event.NewJobEventForwarder(publisher, snapshots, forwarderBuffer)

	jobs := jobstore.NewMemoryJobRegistry(
		jobstore.NewDirCleaner(cfg.Storage.UploadDir, cfg.Storage.OutputDir),
		event.NewJobMetricsObserver(),
		forwarder,
	)

	q := queue.NewMemoryTaskQueue(cfg.Worker.QueueCapacity)
	pipeline := service.NewPipelineService(service.PipelineDependencies{
		Registry:   jobs,
		Queue:      q,
		Separator:  separator,
		Downloader: downloader,
		Analyzer:   analyzer,
		Tracks:     catalog,
		Locks:      locks,
	}, cfg.Storage, cfg.Separator)

	workers := worker.NewWorkerManager()
	for i := 0; i < cfg.Worker.PipelineWorkers; i++ {
		id := fmt.Sprintf("pipeline-%d", i+1)
		workers.AddWorker(id, worker.NewPipelineWorker(id, q, pipeline, jobs, 1))
	}

	var mirror gateway.StorageGateway
	if res.Minio != nil {
		mirror = storage.NewMinioStorage(res.Minio)
	}

	c.JobApp = app.NewJobApp(jobs, pipeline, cfg.Storage)
	c.MediaApp = app.NewMediaApp(downloader, analyzer, cfg.Storage, cfg.Downloader.CacheTTL)
	c.CatalogApp = app.NewCatalogApp(app.CatalogDependencies{
		Catalog:    catalog,
		Derived:    service.NewDerivedMediaService(ffmpeg, cfg.Storage),
		Reconciler: service.NewCatalogReconciler(catalog, analyzer, cfg.Storage, locks),
		Locks:      locks,
		Mirror:     mirror,
	}, cfg.Storage)
	c.WorkerApp = app.NewWorkerApp(workers, q, jobs)

	// 转发器先于流水线启动，停止时最后退出，保证终态事件被投递
	c.Tasks.Register(forwarder)
	c.Tasks.Register(worker.NewPipelineComponent(pipelineComponentKey, q, workers, cfg.Worker.ShutdownGracePeriod))

	if cfg.ServiceRegistry.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.ServiceRegistry.RegisterHost, cfg.Server.Port)
		reg, err := registry.NewServiceRegistry(cfg.Etcd, cfg.ServiceRegistry, addr)
		if err != nil {
			return fmt.Errorf("service registry: %w", err)
		}
		c.Tasks.Register(reg)
	}
	if cfg.Profiling.Enabled {
		c.Tasks.Register(observability.NewProfiler(cfg.Profiling, serviceName))
	}
	return nil
}

// ReconcileOnStartup 按配置执行启动对账，失败只记录日志
func (c *Container) ReconcileOnStartup(ctx context.Context) {
	if !c.Config.Catalog.ReconcileOnStartup {
		return
	}
	start := time.Now()
	report, err := c.CatalogApp.Reconcile(ctx)
	if err != nil {
		logger.Warnf("startup reconcile failed err=%v", err)
		return
	}
	logger.Info("startup reconcile finished", logger.Fields{
		"tracks_created":  report.TracksCreated,
		"samples_created": report.SamplesCreated,
		"loops_created":   report.LoopsCreated,
		"errors":          report.Errors,
		"elapsed":         time.Since(start).String(),
	})
}

// Close 停止后台任务并释放资源
func (c *Container) Close() error {
	err := c.Tasks.StopAll()
	c.MediaApp.Close()
	if cerr := c.Resources.Close(); cerr != nil {
		logger.Warnf("close resources err=%v", cerr)
	}
	return err
}
