package dto

// FetchResultDto 远程音频下载并分析后的结果，audio_path 可作为 fetched_audio_path 提交任务
type FetchResultDto struct {
	JobID     string   `json:"job_id"`
	AudioPath string   `json:"audio_path"`
	AudioURL  string   `json:"audio_url"`
	Filename  string   `json:"filename"`
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	Thumbnail string   `json:"thumbnail"`
	BPM       *float64 `json:"bpm"`
}

// AnalysisDto 音频分析结果
type AnalysisDto struct {
	BPM      *float64 `json:"bpm"`
	Duration float64  `json:"duration"`
}
