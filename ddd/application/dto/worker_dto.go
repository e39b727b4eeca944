package dto

import "time"

// WorkerStatusDto 流水线 worker 运行状态
type WorkerStatusDto struct {
	ID               string    `json:"id"`
	ProcessedTasks   uint64    `json:"processed_tasks"`
	SuccessfulTasks  uint64    `json:"successful_tasks"`
	FailedTasks      uint64    `json:"failed_tasks"`
	SkippedTasks     uint64    `json:"skipped_tasks"`
	CurrentlyRunning int       `json:"currently_running"`
	StartTime        time.Time `json:"start_time"`
	LastTaskTime     time.Time `json:"last_task_time,omitempty"`
}

// QueueStatusDto 流水线队列状态
type QueueStatusDto struct {
	Size         int    `json:"size"`
	Capacity     int    `json:"capacity"`
	EnqueueCount uint64 `json:"enqueue_count"`
	DequeueCount uint64 `json:"dequeue_count"`
	RejectCount  uint64 `json:"reject_count"`
	Closed       bool   `json:"closed"`
}

// WorkerStatisticsDto worker 和队列的汇总
type WorkerStatisticsDto struct {
	Workers     []WorkerStatusDto `json:"workers"`
	Queue       QueueStatusDto    `json:"queue"`
	JobsTracked int               `json:"jobs_tracked"`
}
