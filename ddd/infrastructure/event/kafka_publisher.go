package event

import (
	"context"
	"encoding/json"
	"fmt"

	"stem-service/ddd/domain/gateway"
)

type producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// KafkaJobEventPublisher 以 job_id 为 key 把任务事件写入 kafka
type KafkaJobEventPublisher struct {
	producer producer
	topic    string
}

var _ gateway.JobEventPublisher = (*KafkaJobEventPublisher)(nil)

func NewKafkaJobEventPublisher(p producer, topic string) *KafkaJobEventPublisher {
	return &KafkaJobEventPublisher{producer: p, topic: topic}
}

func (p *KafkaJobEventPublisher) PublishJobEvent(ctx context.Context, ev gateway.JobEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	return p.producer.Produce(ctx, p.topic, []byte(ev.JobID), payload)
}
