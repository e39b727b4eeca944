package entity

import (
	"time"
)

// TrackEntity 曲目实体，name 唯一，同时是输出目录名
type TrackEntity struct {
	id               uint64
	name             string
	bpm              *float64
	duration         *float64
	stemCount        int
	originalFilename *string
	createdAt        time.Time
	stems            []*StemEntity
}

// StemEntity 分离层实体，随曲目级联删除
type StemEntity struct {
	id       uint64
	trackID  uint64
	name     string
	filename string
	duration *float64
}

// NewTrackEntity 创建曲目实体
func NewTrackEntity(name string, stemCount int) *TrackEntity {
	return &TrackEntity{
		name:      name,
		stemCount: stemCount,
		createdAt: time.Now(),
	}
}

// NewTrackEntityWithDetails 从持久化数据还原曲目实体
func NewTrackEntityWithDetails(
	id uint64,
	name string,
	bpm, duration *float64,
	stemCount int,
	originalFilename *string,
	createdAt time.Time,
	stems []*StemEntity,
) *TrackEntity {
	return &TrackEntity{
		id:               id,
		name:             name,
		bpm:              bpm,
		duration:         duration,
		stemCount:        stemCount,
		originalFilename: originalFilename,
		createdAt:        createdAt,
		stems:            stems,
	}
}

// Getters
func (t *TrackEntity) ID() uint64                { return t.id }
func (t *TrackEntity) Name() string              { return t.name }
func (t *TrackEntity) BPM() *float64             { return t.bpm }
func (t *TrackEntity) Duration() *float64        { return t.duration }
func (t *TrackEntity) StemCount() int            { return t.stemCount }
func (t *TrackEntity) OriginalFilename() *string { return t.originalFilename }
func (t *TrackEntity) CreatedAt() time.Time      { return t.createdAt }
func (t *TrackEntity) Stems() []*StemEntity      { return t.stems }

// SetAnalysis 记录分析结果，分析失败时保持为空
func (t *TrackEntity) SetAnalysis(bpm, duration *float64) {
	t.bpm = bpm
	t.duration = duration
}

// SetOriginalFilename 记录原始文件名
func (t *TrackEntity) SetOriginalFilename(name string) {
	if name == "" {
		t.originalFilename = nil
		return
	}
	t.originalFilename = &name
}

// AddStem 添加分离层
func (t *TrackEntity) AddStem(s *StemEntity) {
	t.stems = append(t.stems, s)
}

// SetID 由仓储在插入后回填
func (t *TrackEntity) SetID(id uint64) {
	t.id = id
	for _, s := range t.stems {
		s.trackID = id
	}
}

// NewStemEntity 创建分离层实体
func NewStemEntity(name, filename string, duration *float64) *StemEntity {
	return &StemEntity{name: name, filename: filename, duration: duration}
}

// NewStemEntityWithDetails 从持久化数据还原分离层实体
func NewStemEntityWithDetails(id, trackID uint64, name, filename string, duration *float64) *StemEntity {
	return &StemEntity{id: id, trackID: trackID, name: name, filename: filename, duration: duration}
}

func (s *StemEntity) ID() uint64         { return s.id }
func (s *StemEntity) TrackID() uint64    { return s.trackID }
func (s *StemEntity) Name() string       { return s.name }
func (s *StemEntity) Filename() string   { return s.filename }
func (s *StemEntity) Duration() *float64 { return s.duration }
func (s *StemEntity) SetID(id uint64)    { s.id = id }
