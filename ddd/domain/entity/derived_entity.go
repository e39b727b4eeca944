package entity

import (
	"time"

	"stem-service/ddd/domain/vo"
)

// SampleEntity 片段实体，filename 唯一且可由元数据重建
type SampleEntity struct {
	id        uint64
	trackName string
	stemName  string
	filename  string
	startTime float64
	endTime   float64
	duration  float64
	createdAt time.Time
}

// NewSampleEntity 由文件名元数据创建片段实体
func NewSampleEntity(name vo.SampleName) *SampleEntity {
	return &SampleEntity{
		trackName: name.TrackName,
		stemName:  name.StemName,
		filename:  name.Filename(),
		startTime: name.StartTime,
		endTime:   name.EndTime,
		duration:  name.Duration(),
		createdAt: time.Now(),
	}
}

// NewSampleEntityWithDetails 从持久化数据还原片段实体
func NewSampleEntityWithDetails(id uint64, trackName, stemName, filename string, start, end, duration float64, createdAt time.Time) *SampleEntity {
	return &SampleEntity{id: id, trackName: trackName, stemName: stemName, filename: filename,
		startTime: start, endTime: end, duration: duration, createdAt: createdAt}
}

func (s *SampleEntity) ID() uint64           { return s.id }
func (s *SampleEntity) TrackName() string    { return s.trackName }
func (s *SampleEntity) StemName() string     { return s.stemName }
func (s *SampleEntity) Filename() string     { return s.filename }
func (s *SampleEntity) StartTime() float64   { return s.startTime }
func (s *SampleEntity) EndTime() float64     { return s.endTime }
func (s *SampleEntity) Duration() float64    { return s.duration }
func (s *SampleEntity) CreatedAt() time.Time { return s.createdAt }
func (s *SampleEntity) SetID(id uint64)      { s.id = id }

// LoopEntity 循环实体
type LoopEntity struct {
	id         uint64
	sourceType vo.SourceType
	trackName  string
	stemName   string
	filename   string
	startTime  float64
	endTime    float64
	loopCount  int
	duration   float64
	createdAt  time.Time
}

// NewLoopEntity 由文件名元数据创建循环实体
func NewLoopEntity(sourceType vo.SourceType, name vo.LoopName) *LoopEntity {
	return &LoopEntity{
		sourceType: sourceType,
		trackName:  name.TrackName,
		stemName:   name.StemName,
		filename:   name.Filename(),
		startTime:  name.StartTime,
		endTime:    name.EndTime,
		loopCount:  name.LoopCount,
		duration:   name.Duration(),
		createdAt:  time.Now(),
	}
}

// NewLoopEntityWithDetails 从持久化数据还原循环实体
func NewLoopEntityWithDetails(id uint64, sourceType vo.SourceType, trackName, stemName, filename string,
	start, end float64, loopCount int, duration float64, createdAt time.Time) *LoopEntity {
	return &LoopEntity{id: id, sourceType: sourceType, trackName: trackName, stemName: stemName, filename: filename,
		startTime: start, endTime: end, loopCount: loopCount, duration: duration, createdAt: createdAt}
}

func (l *LoopEntity) ID() uint64                { return l.id }
func (l *LoopEntity) SourceType() vo.SourceType { return l.sourceType }
func (l *LoopEntity) TrackName() string         { return l.trackName }
func (l *LoopEntity) StemName() string          { return l.stemName }
func (l *LoopEntity) Filename() string          { return l.filename }
func (l *LoopEntity) StartTime() float64        { return l.startTime }
func (l *LoopEntity) EndTime() float64          { return l.endTime }
func (l *LoopEntity) LoopCount() int            { return l.loopCount }
func (l *LoopEntity) Duration() float64         { return l.duration }
func (l *LoopEntity) CreatedAt() time.Time      { return l.createdAt }
func (l *LoopEntity) SetID(id uint64)           { l.id = id }
