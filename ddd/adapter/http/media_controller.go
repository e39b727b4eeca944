package http

import (
	"github.com/gin-gonic/gin"

	"stem-service/ddd/application/app"
	"stem-service/ddd/application/cqe"
	"stem-service/pkg/errno"
	"stem-service/pkg/restapi"
)

// MediaController 下载和分析控制器
type MediaController struct {
	mediaApp app.MediaApp
}

// NewMediaController 创建控制器
func NewMediaController(mediaApp app.MediaApp) *MediaController {
	return &MediaController{mediaApp: mediaApp}
}

// Fetch 下载远程音频并分析
func (c *MediaController) Fetch(ctx *gin.Context) {
	var req cqe.FetchCqe
	if err := ctx.ShouldBind(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	resp, err := c.mediaApp.Fetch(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// Analyze 分析上传的音频
func (c *MediaController) Analyze(ctx *gin.Context) {
	file, closeFile, err := formFile(ctx, "file")
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	defer closeFile()

	resp, err := c.mediaApp.Analyze(ctx.Request.Context(), &cqe.AnalyzeCqe{File: file})
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}
