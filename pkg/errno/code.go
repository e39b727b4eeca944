package errno

import (
	"errors"
	"fmt"
)

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

// BizError 携带错误码和底层原因的业务错误
type BizError struct {
	errno *Errno
	cause error
}

// NewBizError 用错误码包装底层错误
func NewBizError(no *Errno, cause error) *BizError {
	return &BizError{errno: no, cause: cause}
}

// NewBizErrorf 用错误码和格式化信息构造业务错误
func NewBizErrorf(no *Errno, format string, args ...interface{}) *BizError {
	return &BizError{errno: no, cause: fmt.Errorf(format, args...)}
}

func (e *BizError) Error() string {
	if e.cause == nil {
		return e.errno.Message
	}
	return e.errno.Message + ": " + e.cause.Error()
}

// Errno 返回错误码
func (e *BizError) Errno() *Errno {
	return e.errno
}

// Is 使 errors.Is(err, errno.ErrXxx) 可用
func (e *BizError) Is(target error) bool {
	return target == e.errno
}

func (e *BizError) Unwrap() error {
	return e.cause
}

// FromError 从错误链中提取错误码，未识别时返回 ErrInternalServer
func FromError(err error) *Errno {
	if err == nil {
		return OK
	}
	var biz *BizError
	if errors.As(err, &biz) {
		return biz.errno
	}
	var no *Errno
	if errors.As(err, &no) {
		return no
	}
	return ErrInternalServer
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 业务错误码
	ErrMissingParam    = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrFileNameIllegal = &Errno{Code: 20002, Message: "File name is illegal"}
	ErrFileSizeIllegal = &Errno{Code: 20003, Message: "File size is illegal"}
	ErrUploadError     = &Errno{Code: 20006, Message: "Upload error"}

	// 任务相关错误码
	ErrJobNotFound         = &Errno{Code: 20008, Message: "Job not found"}
	ErrInvalidJobStatus    = &Errno{Code: 20009, Message: "Invalid job status transition"}
	ErrQueueFull           = &Errno{Code: 20012, Message: "Task queue is full"}
	ErrQueueClosed         = &Errno{Code: 20013, Message: "Task queue is closed"}
	ErrInvalidStemCount    = &Errno{Code: 20014, Message: "Stem count must be 2, 4 or 5"}
	ErrAcquisitionRequired = &Errno{Code: 20015, Message: "One of file, url or fetched_audio_path is required"}
	ErrOutputDirMissing    = &Errno{Code: 20016, Message: "Output directory not found"}

	// 目录和衍生媒体错误码
	ErrTrackNotFound      = &Errno{Code: 20030, Message: "Track not found"}
	ErrStemNotFound       = &Errno{Code: 20031, Message: "Stem not found"}
	ErrSampleNotFound     = &Errno{Code: 20032, Message: "Sample not found"}
	ErrLoopNotFound       = &Errno{Code: 20033, Message: "Loop not found"}
	ErrInvalidTimeRange   = &Errno{Code: 20034, Message: "Invalid time range"}
	ErrInvalidLoopCount   = &Errno{Code: 20035, Message: "Loop count must be at least 2"}
	ErrInvalidSourceType  = &Errno{Code: 20036, Message: "Source type must be stem or sample"}
	ErrTrackExists        = &Errno{Code: 20037, Message: "Track already exists"}
	ErrDuplicateFilename  = &Errno{Code: 20038, Message: "Derived filename already catalogued"}
	ErrToolFailed         = &Errno{Code: 20040, Message: "External tool failed"}
	ErrDownloadFailed     = &Errno{Code: 20041, Message: "Download failed"}
	ErrAnalysisFailed     = &Errno{Code: 20042, Message: "Audio analysis failed"}
	ErrReconcileFailed    = &Errno{Code: 20043, Message: "Catalog reconcile failed"}
	ErrReconcileBusy      = &Errno{Code: 20044, Message: "Catalog reconcile already running"}
	ErrMinIoBuckNotExists = &Errno{Code: 20050, Message: "Minio bucket name does not exist"}
)
