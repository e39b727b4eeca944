package http

import (
	"github.com/gin-gonic/gin"

	"stem-service/ddd/application/app"
)

// WorkerController 流水线 worker 状态控制器
type WorkerController struct {
	workerApp app.WorkerApp
}

// NewWorkerController 创建Worker控制器
func NewWorkerController(workerApp app.WorkerApp) *WorkerController {
	return &WorkerController{workerApp: workerApp}
}

// GetWorkerStatistics 获取Worker统计
func (c *WorkerController) GetWorkerStatistics(ctx *gin.Context) {
	resp, err := c.workerApp.GetWorkerStatistics(ctx.Request.Context())
	respond(ctx, resp, err)
}
