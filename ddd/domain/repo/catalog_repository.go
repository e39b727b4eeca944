package repo

import (
	"context"

	"stem-service/ddd/domain/entity"
)

// 查询类方法在记录不存在时返回 (nil, nil)

// TrackRepository 曲目仓储接口
type TrackRepository interface {
	// CreateTrack 在一个事务内创建曲目及其分离层
	CreateTrack(ctx context.Context, track *entity.TrackEntity) error

	// GetTrackByID 获取曲目及按名称排序的分离层
	GetTrackByID(ctx context.Context, id uint64) (*entity.TrackEntity, error)

	// GetTrackByName 根据曲目名获取
	GetTrackByName(ctx context.Context, name string) (*entity.TrackEntity, error)

	// TrackExists 曲目名是否已存在
	TrackExists(ctx context.Context, name string) (bool, error)

	// ListTracks 按创建时间倒序列出曲目
	ListTracks(ctx context.Context) ([]*entity.TrackEntity, error)

	// UpdateOriginalFilename 回填原始文件名
	UpdateOriginalFilename(ctx context.Context, name, filename string) error

	// DeleteTrack 删除曲目，分离层级联删除
	DeleteTrack(ctx context.Context, id uint64) (bool, error)
}

// SampleRepository 片段仓储接口
type SampleRepository interface {
	CreateSample(ctx context.Context, sample *entity.SampleEntity) error
	GetSampleByID(ctx context.Context, id uint64) (*entity.SampleEntity, error)
	GetSampleByFilename(ctx context.Context, filename string) (*entity.SampleEntity, error)
	ListSamples(ctx context.Context) ([]*entity.SampleEntity, error)
	SampleExists(ctx context.Context, filename string) (bool, error)
	DeleteSample(ctx context.Context, id uint64) (bool, error)
}

// LoopRepository 循环仓储接口
type LoopRepository interface {
	CreateLoop(ctx context.Context, loop *entity.LoopEntity) error
	GetLoopByID(ctx context.Context, id uint64) (*entity.LoopEntity, error)
	GetLoopByFilename(ctx context.Context, filename string) (*entity.LoopEntity, error)
	ListLoops(ctx context.Context) ([]*entity.LoopEntity, error)
	LoopExists(ctx context.Context, filename string) (bool, error)
	DeleteLoop(ctx context.Context, id uint64) (bool, error)
}

// CatalogRepository 元数据存储的聚合入口
type CatalogRepository interface {
	TrackRepository
	SampleRepository
	LoopRepository
}
