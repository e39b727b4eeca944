package port

import (
	"context"

	"stem-service/ddd/domain/entity"
)

// PipelineQueue buffers accepted jobs until a pipeline worker picks them up.
type PipelineQueue interface {
	// Enqueue never blocks; a full queue is reported as an error.
	Enqueue(ctx context.Context, task *entity.PipelineTask) error
	// Dequeue blocks until a task is available, ctx ends or the queue closes.
	Dequeue(ctx context.Context) (*entity.PipelineTask, error)
	Size() int
	Close() error
}
