package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"stem-service/ddd/application/app"
	"stem-service/pkg/config"
	"stem-service/pkg/middleware"
)

// Router 路由配置
type Router struct {
	jobApp     app.JobApp
	mediaApp   app.MediaApp
	catalogApp app.CatalogApp
	workerApp  app.WorkerApp
	storage    config.StorageConfig
	server     config.ServerConfig
}

// NewRouter 创建路由配置
func NewRouter(jobApp app.JobApp, mediaApp app.MediaApp, catalogApp app.CatalogApp, workerApp app.WorkerApp,
	storage config.StorageConfig, server config.ServerConfig) *Router {
	return &Router{
		jobApp:     jobApp,
		mediaApp:   mediaApp,
		catalogApp: catalogApp,
		workerApp:  workerApp,
		storage:    storage,
		server:     server,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(engine *gin.Engine) {
	jobController := NewJobController(r.jobApp)
	mediaController := NewMediaController(r.mediaApp)
	catalogController := NewCatalogController(r.catalogApp)
	workerController := NewWorkerController(r.workerApp)

	v1 := engine.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobController.SubmitJob)
			jobs.GET("", jobController.ListJobs)
			jobs.GET("/:job_id", jobController.GetJob)
			jobs.DELETE("/:job_id", jobController.DeleteJob)
			jobs.POST("/:job_id/cancel", jobController.CancelJob)
		}

		v1.POST("/fetch", mediaController.Fetch)
		v1.POST("/analyze", mediaController.Analyze)

		tracks := v1.Group("/tracks")
		{
			tracks.GET("", catalogController.ListTracks)
			tracks.GET("/:id", catalogController.GetTrack)
			tracks.DELETE("/:id", catalogController.DeleteTrack)
		}

		samples := v1.Group("/samples")
		{
			samples.POST("", catalogController.CreateSample)
			samples.GET("", catalogController.ListSamples)
			samples.GET("/:id", catalogController.GetSample)
			samples.DELETE("/:id", catalogController.DeleteSample)
		}

		loops := v1.Group("/loops")
		{
			loops.POST("", catalogController.CreateLoop)
			loops.GET("", catalogController.ListLoops)
			loops.GET("/:id", catalogController.GetLoop)
			loops.DELETE("/:id", catalogController.DeleteLoop)
		}

		v1.POST("/catalog/reconcile", catalogController.Reconcile)
		v1.GET("/workers", workerController.GetWorkerStatistics)
	}

	// 产物静态访问
	engine.Static("/output", r.storage.OutputDir)
	engine.Static("/uploads", r.storage.UploadDir)
	engine.Static("/samples", r.storage.SamplesDir)
	engine.Static("/loops", r.storage.LoopsDir)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "stem-service",
		})
	})
}

// SetupMiddleware 设置中间件，metrics 为 true 时注册 /metrics
func (r *Router) SetupMiddleware(engine *gin.Engine, metrics bool) {
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.RequestContextMiddleware())
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(middleware.BodyLimitMiddleware(r.server.MaxUploadSizeMB << 20))

	if metrics {
		p := ginprometheus.NewPrometheus("gin")
		p.Use(engine)
	}
}
