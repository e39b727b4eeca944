package gateway

import (
	"context"
	"time"
)

// JobEvent is the payload published whenever a job changes.
type JobEvent struct {
	Type      string            `json:"type"`
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	AudioName string            `json:"audio_name,omitempty"`
	Stems     map[string]string `json:"stems,omitempty"`
	At        time.Time         `json:"at"`
}

// JobEventPublisher notifies downstream consumers about job outcomes.
type JobEventPublisher interface {
	PublishJobEvent(ctx context.Context, event JobEvent) error
}

// JobSnapshotStore keeps a read-only copy of job state outside the process.
type JobSnapshotStore interface {
	SaveJobSnapshot(ctx context.Context, event JobEvent) error
	DeleteJobSnapshot(ctx context.Context, jobID string) error
}
