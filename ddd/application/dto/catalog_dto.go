package dto

import (
	"fmt"
	"net/url"
	"time"

	"stem-service/ddd/domain/entity"
)

// TrackDto 曲目
type TrackDto struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	BPM              *float64  `json:"bpm"`
	Duration         *float64  `json:"duration"`
	StemCount        int       `json:"stem_count"`
	OriginalFilename *string   `json:"original_filename"`
	OriginalURL      string    `json:"original_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Stems            []StemDto `json:"stems,omitempty"`
}

// StemDto 分离层
type StemDto struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Filename string   `json:"filename"`
	Duration *float64 `json:"duration"`
	URL      string   `json:"url"`
}

// SampleDto 片段
type SampleDto struct {
	ID        uint64    `json:"id"`
	TrackName string    `json:"track_name"`
	StemName  string    `json:"stem_name"`
	Filename  string    `json:"filename"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Duration  float64   `json:"duration"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// LoopDto 循环
type LoopDto struct {
	ID         uint64    `json:"id"`
	SourceType string    `json:"source_type"`
	TrackName  string    `json:"track_name"`
	StemName   string    `json:"stem_name"`
	Filename   string    `json:"filename"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	LoopCount  int       `json:"loop_count"`
	Duration   float64   `json:"duration"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewTrackDto withStems 为 false 时不输出分离层
func NewTrackDto(t *entity.TrackEntity, withStems bool) *TrackDto {
	if t == nil {
		return nil
	}
	d := &TrackDto{
		ID:               t.ID(),
		Name:             t.Name(),
		BPM:              t.BPM(),
		Duration:         t.Duration(),
		StemCount:        t.StemCount(),
		OriginalFilename: t.OriginalFilename(),
		CreatedAt:        t.CreatedAt(),
	}
	if f := t.OriginalFilename(); f != nil && *f != "" {
		d.OriginalURL = mediaURL("output", t.Name(), *f)
	}
	if withStems {
		d.Stems = make([]StemDto, 0, len(t.Stems()))
		for _, s := range t.Stems() {
			d.Stems = append(d.Stems, StemDto{
				ID:       s.ID(),
				Name:     s.Name(),
				Filename: s.Filename(),
				Duration: s.Duration(),
				URL:      mediaURL("output", t.Name(), s.Filename()),
			})
		}
	}
	return d
}

func NewSampleDto(s *entity.SampleEntity) *SampleDto {
	if s == nil {
		return nil
	}
	return &SampleDto{
		ID:        s.ID(),
		TrackName: s.TrackName(),
		StemName:  s.StemName(),
		Filename:  s.Filename(),
		StartTime: s.StartTime(),
		EndTime:   s.EndTime(),
		Duration:  s.Duration(),
		URL:       mediaURL("samples", s.Filename()),
		CreatedAt: s.CreatedAt(),
	}
}

func NewLoopDto(l *entity.LoopEntity) *LoopDto {
	if l == nil {
		return nil
	}
	return &LoopDto{
		ID:         l.ID(),
		SourceType: l.SourceType().String(),
		TrackName:  l.TrackName(),
		StemName:   l.StemName(),
		Filename:   l.Filename(),
		StartTime:  l.StartTime(),
		EndTime:    l.EndTime(),
		LoopCount:  l.LoopCount(),
		Duration:   l.Duration(),
		URL:        mediaURL("loops", l.Filename()),
		CreatedAt:  l.CreatedAt(),
	}
}

// mediaURL 静态挂载下的访问路径，文件名中的空格和括号被转义
func mediaURL(mount string, segments ...string) string {
	u := "/" + mount
	for _, s := range segments {
		u += "/" + url.PathEscape(s)
	}
	return u
}

// FormatSeconds 以文件名相同的精度输出秒数
func FormatSeconds(v float64) string {
	return fmt.Sprintf("%.2fs", v)
}
