package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	httpadapter "stem-service/ddd/adapter/http"
	"stem-service/pkg/config"
	"stem-service/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Bootstrap 加载配置并初始化全局日志，返回的 closer 在进程退出前调用
func Bootstrap(configPath string) (*config.Config, func(), error) {
	if configPath == "" {
		configPath = config.ResolvePath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Debug("Logger initialized", logger.Fields{
		"config": configPath,
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	return cfg, func() { _ = logService.Close() }, nil
}

// Run 启动 HTTP 服务，收到 SIGINT/SIGTERM 或 ctx 结束后优雅退出
func Run(ctx context.Context, cfg *config.Config) error {
	logger.Infof("Stem service starting addr=%s mode=%s", cfg.Server.GetAddr(), cfg.Server.Mode)

	if err := ensureDirs(cfg.Storage); err != nil {
		return err
	}

	c, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Tasks.StartAll(runCtx); err != nil {
		_ = c.Close()
		return fmt.Errorf("start background tasks: %w", err)
	}
	c.ReconcileOnStartup(runCtx)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	router := httpadapter.NewRouter(c.JobApp, c.MediaApp, c.CatalogApp, c.WorkerApp, cfg.Storage, cfg.Server)
	router.SetupMiddleware(engine, true)
	router.SetupRoutes(engine)

	server := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server started addr=%s health_url=http://%s/health", server.Addr, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-runCtx.Done():
		logger.Infof("Received shutdown signal, shutting down server...")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
			logger.Errorf("HTTP server failed err=%v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Server forced to close err=%v", err)
	}

	// 流水线在这里排空，关闭前完成的任务仍会写入目录
	if err := c.Close(); err != nil {
		logger.Warnf("Background tasks stopped with errors err=%v", err)
	}

	logger.Infof("Server exited safely")
	return runErr
}

func ensureDirs(storage config.StorageConfig) error {
	for _, dir := range []string{storage.UploadDir, storage.OutputDir, storage.SamplesDir, storage.LoopsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return nil
}
