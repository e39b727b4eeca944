package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stem-service/pkg/errno"
	"stem-service/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success 返回成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:      errno.OK.Code,
		Message:   errno.OK.Message,
		Data:      data,
		RequestID: ctx.GetString("request_id"),
	})
}

// Failed 返回失败响应，状态码由错误码决定
func Failed(ctx *gin.Context, err error) {
	no := errno.FromError(err)
	status := HTTPStatus(no)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logger.Fields{
			"path":       ctx.FullPath(),
			"request_id": ctx.GetString("request_id"),
			"error":      err.Error(),
		})
	}

	msg := err.Error()
	var plain *errno.Errno
	if errors.As(err, &plain) && plain == no {
		msg = no.Message
	}
	ctx.AbortWithStatusJSON(status, Response{
		Code:      no.Code,
		Message:   msg,
		RequestID: ctx.GetString("request_id"),
	})
}

// HTTPStatus 把业务错误码映射到 HTTP 状态
func HTTPStatus(no *errno.Errno) int {
	switch no {
	case errno.ErrJobNotFound, errno.ErrTrackNotFound, errno.ErrStemNotFound,
		errno.ErrSampleNotFound, errno.ErrLoopNotFound, errno.ErrNotFound:
		return http.StatusNotFound
	case errno.ErrTrackExists, errno.ErrDuplicateFilename, errno.ErrInvalidJobStatus, errno.ErrReconcileBusy:
		return http.StatusConflict
	case errno.ErrQueueFull, errno.ErrQueueClosed:
		return http.StatusServiceUnavailable
	case errno.ErrToolFailed, errno.ErrDownloadFailed, errno.ErrAnalysisFailed:
		return http.StatusBadGateway
	case errno.ErrReconcileFailed, errno.ErrOutputDirMissing:
		return http.StatusInternalServerError
	}
	switch {
	case no.Code >= 400 && no.Code < 500:
		return no.Code
	case no.Code >= 20000 && no.Code < 30000:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
