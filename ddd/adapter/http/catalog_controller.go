package http

import (
	"github.com/gin-gonic/gin"

	"stem-service/ddd/application/app"
	"stem-service/ddd/application/cqe"
	"stem-service/pkg/errno"
	"stem-service/pkg/restapi"
)

// CatalogController 曲目、片段、循环控制器
type CatalogController struct {
	catalogApp app.CatalogApp
}

// NewCatalogController 创建目录控制器
func NewCatalogController(catalogApp app.CatalogApp) *CatalogController {
	return &CatalogController{catalogApp: catalogApp}
}

func (c *CatalogController) ListTracks(ctx *gin.Context) {
	resp, err := c.catalogApp.ListTracks(ctx.Request.Context())
	respond(ctx, resp, err)
}

func (c *CatalogController) GetTrack(ctx *gin.Context) {
	req, ok := bindID(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogApp.GetTrack(ctx.Request.Context(), req)
	respond(ctx, resp, err)
}

func (c *CatalogController) DeleteTrack(ctx *gin.Context) {
	req, ok := bindID(ctx)
	if !ok {
		return
	}
	err := c.catalogApp.DeleteTrack(ctx.Request.Context(), req)
	respond(ctx, deleted(req.ID), err)
}

func (c *CatalogController) CreateSample(ctx *gin.Context) {
	var req cqe.CreateSampleCqe
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	resp, err := c.catalogApp.CreateSample(ctx.Request.Context(), &req)
	respond(ctx, resp, err)
}

func (c *CatalogController) ListSamples(ctx *gin.Context) {
	resp, err := c.catalogApp.ListSamples(ctx.Request.Context())
	respond(ctx, resp, err)
}

func (c *CatalogController) GetSample(ctx *gin.Context) {
	req, ok := bindID(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogApp.GetSample(ctx.Request.Context(), req)
	respond(ctx, resp, err)
}

func (c *CatalogController) DeleteSample(ctx *gin.Context) {
	req, ok := bindID(ctx)
	if !ok {
		return
	}
	err := c.catalogApp.DeleteSample(ctx.Request.Context(), req)
	respond(ctx, deleted(req.ID), err)
}

func (c *CatalogController) CreateLoop(ctx *gin.Context) {
	var req cqe.CreateLoopCqe
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	resp, err := c.catalogApp.CreateLoop(ctx.Request.Context(), &req)
	respond(ctx, resp, err)
}

func (c *CatalogController) ListLoops(ctx *gin.Context) {
	resp, err := c.catalogApp.ListLoops(ctx.Request.Context())
	respond(ctx, resp, err)
}

func (c *CatalogController) GetLoop(ctx *gin.Context) {
	req, ok := bindID(ctx)
	if !ok {
		return
	}
	resp, err := c.catalogApp.GetLoop(ctx.Request.Context(), req)
	respond(ctx, resp, err)
}

func (c *CatalogController) DeleteLoop(ctx *gin.Context) {
	req, ok := bindID(ctx)
	if !ok {
		return
	}
	err := c.catalogApp.DeleteLoop(ctx.Request.Context(), req)
	respond(ctx, deleted(req.ID), err)
}

// Reconcile 手动触发对账
func (c *CatalogController) Reconcile(ctx *gin.Context) {
	resp, err := c.catalogApp.Reconcile(ctx.Request.Context())
	respond(ctx, resp, err)
}

func bindID(ctx *gin.Context) (*cqe.IDCqe, bool) {
	var req cqe.IDCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return nil, false
	}
	return &req, true
}

func deleted(id uint64) gin.H {
	return gin.H{"id": id, "status": "deleted"}
}

func respond(ctx *gin.Context, data interface{}, err error) {
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, data)
}
