package vo

// JobStatus 分离任务状态
type JobStatus string

const (
	// JobStatusPending 已受理，尚未开始分离
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing 分离处理中
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted 已完成
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError 失败
	JobStatusError JobStatus = "error"
)

// IsValid 检查状态是否有效
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusError:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s JobStatus) String() string {
	return string(s)
}

// IsFinalStatus 检查是否为最终状态
func (s JobStatus) IsFinalStatus() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// CanTransitionTo 检查是否可以转换到目标状态
//
// pending 可以直接进入 error，对应获取音频阶段（处理开始前）的失败。
// 状态不变的更新（只改 message 等字段）总是允许，终态除外。
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	if s == target {
		return !s.IsFinalStatus()
	}
	switch s {
	case JobStatusPending:
		return target == JobStatusProcessing || target == JobStatusError
	case JobStatusProcessing:
		return target == JobStatusCompleted || target == JobStatusError
	case JobStatusCompleted, JobStatusError:
		return false // 最终状态不能转换
	default:
		return false
	}
}
