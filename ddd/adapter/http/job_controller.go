package http

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"stem-service/ddd/application/app"
	"stem-service/ddd/application/cqe"
	"stem-service/pkg/errno"
	"stem-service/pkg/restapi"
)

// JobController 分离任务控制器
type JobController struct {
	jobApp app.JobApp
}

// NewJobController 创建分离任务控制器
func NewJobController(jobApp app.JobApp) *JobController {
	return &JobController{jobApp: jobApp}
}

// SubmitJob 提交分离任务，multipart 表单
func (c *JobController) SubmitJob(ctx *gin.Context) {
	var req cqe.SubmitJobCqe
	if err := ctx.ShouldBind(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}

	file, closeFile, err := formFile(ctx, "file")
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	defer closeFile()
	req.File = file

	resp, err := c.jobApp.SubmitJob(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// GetJob 获取任务状态
func (c *JobController) GetJob(ctx *gin.Context) {
	var req cqe.JobIDCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	resp, err := c.jobApp.GetJob(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// ListJobs 获取任务列表
func (c *JobController) ListJobs(ctx *gin.Context) {
	resp, err := c.jobApp.ListJobs(ctx.Request.Context())
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// DeleteJob 删除任务
func (c *JobController) DeleteJob(ctx *gin.Context) {
	var req cqe.JobIDCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	resp, err := c.jobApp.DeleteJob(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// CancelJob 取消任务
func (c *JobController) CancelJob(ctx *gin.Context) {
	var req cqe.JobIDCqe
	if err := ctx.ShouldBindUri(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	resp, err := c.jobApp.CancelJob(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, resp)
}

// formFile 字段缺失时返回 nil，超出大小限制时返回 ErrFileSizeIllegal
func formFile(ctx *gin.Context, field string) (*cqe.UploadFile, func(), error) {
	noop := func() {}
	fh, err := ctx.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, noop, nil
		case errors.As(err, &tooLarge):
			return nil, noop, errno.NewBizError(errno.ErrFileSizeIllegal, err)
		default:
			return nil, noop, errno.NewBizError(errno.ErrUploadError, err)
		}
	}
	if fh.Filename == "" {
		return nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, errno.NewBizError(errno.ErrUploadError, err)
	}
	return &cqe.UploadFile{Filename: fh.Filename, Content: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}
