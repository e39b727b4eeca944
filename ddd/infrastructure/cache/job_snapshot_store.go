package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stem-service/ddd/domain/gateway"
)

// RedisJobSnapshotStore 把任务快照写到 redis，供外部只读查询
//
// 服务本身从不读取这些键，注册表仍是唯一的状态来源。
type RedisJobSnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ gateway.JobSnapshotStore = (*RedisJobSnapshotStore)(nil)

func NewRedisJobSnapshotStore(client *redis.Client, prefix string, ttl time.Duration) *RedisJobSnapshotStore {
	return &RedisJobSnapshotStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisJobSnapshotStore) key(jobID string) string {
	return s.prefix + jobID
}

func (s *RedisJobSnapshotStore) SaveJobSnapshot(ctx context.Context, ev gateway.JobEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal job snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key(ev.JobID), payload, s.ttl).Err()
}

func (s *RedisJobSnapshotStore) DeleteJobSnapshot(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, s.key(jobID)).Err()
}

// GetJobSnapshot 读取快照，不存在时返回 (nil, nil)
func (s *RedisJobSnapshotStore) GetJobSnapshot(ctx context.Context, jobID string) (*gateway.JobEvent, error) {
	raw, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ev gateway.JobEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode job snapshot: %w", err)
	}
	return &ev, nil
}
