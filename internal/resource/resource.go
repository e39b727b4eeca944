package resource

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"stem-service/ddd/infrastructure/database/po"
	"stem-service/pkg/config"
	"stem-service/pkg/kafka"
	"stem-service/pkg/logger"
	"stem-service/pkg/redisclient"
	"stem-service/pkg/repository"
)

// Resources 进程持有的外部连接，可选组件未启用时为 nil
type Resources struct {
	DB    *gorm.DB
	Redis *redisclient.Client
	Kafka *kafka.Client
	Minio *MinioResource
}

// Open 按配置打开数据库和已启用的可选组件，任一失败时关闭已打开的部分
func Open(ctx context.Context, cfg *config.Config) (*Resources, error) {
	r := &Resources{}

	db, err := repository.NewDatabase(cfg.Database, po.AllModels()...)
	if err != nil {
		return nil, err
	}
	r.DB = db

	if cfg.Redis.Enabled {
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		r.Redis = client
		logger.Infof("Redis connected addr=%s", cfg.Redis.GetRedisAddr())
	}

	if cfg.Kafka.Enabled {
		client, err := kafka.New(cfg.Kafka)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("open kafka: %w", err)
		}
		r.Kafka = client
	}

	if cfg.Minio.Enabled {
		m, err := NewMinioResource(ctx, cfg.Minio)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("open minio: %w", err)
		}
		r.Minio = m
	}

	return r, nil
}

// Close 逆序释放资源，minio 客户端无需关闭
func (r *Resources) Close() error {
	var errs []error
	if r.Kafka != nil {
		if err := r.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka: %w", err))
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.DB != nil {
		if err := repository.Close(r.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
