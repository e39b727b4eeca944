package gateway

import "context"

// StorageGateway 对象存储网关，用于镜像本地产物
type StorageGateway interface {
	// MirrorFile 上传本地文件，返回对象路径
	MirrorFile(ctx context.Context, localPath, objectKey, contentType string) (string, error)

	// RemoveObject 删除对象，对象不存在时不报错
	RemoveObject(ctx context.Context, objectKey string) error
}
