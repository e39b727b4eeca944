package po

// Sample 片段持久化对象
type Sample struct {
	BaseModel
	TrackName string  `gorm:"column:track_name;type:varchar(255);index;not null" json:"track_name"`
	StemName  string  `gorm:"column:stem_name;type:varchar(64);not null" json:"stem_name"`
	Filename  string  `gorm:"column:filename;type:varchar(512);uniqueIndex;not null" json:"filename"`
	StartTime float64 `gorm:"column:start_time;not null" json:"start_time"`
	EndTime   float64 `gorm:"column:end_time;not null" json:"end_time"`
	Duration  float64 `gorm:"column:duration;not null" json:"duration"`
}

// TableName 指定表名
func (Sample) TableName() string {
	return "samples"
}

// Loop 循环持久化对象
type Loop struct {
	BaseModel
	SourceType string  `gorm:"column:source_type;type:varchar(20);not null" json:"source_type"` // stem|sample
	TrackName  string  `gorm:"column:track_name;type:varchar(255);index;not null" json:"track_name"`
	StemName   string  `gorm:"column:stem_name;type:varchar(64);not null" json:"stem_name"`
	Filename   string  `gorm:"column:filename;type:varchar(512);uniqueIndex;not null" json:"filename"`
	StartTime  float64 `gorm:"column:start_time;not null" json:"start_time"`
	EndTime    float64 `gorm:"column:end_time;not null" json:"end_time"`
	LoopCount  int     `gorm:"column:loop_count;not null" json:"loop_count"`
	Duration   float64 `gorm:"column:duration;not null" json:"duration"`
}

// TableName 指定表名
func (Loop) TableName() string {
	return "loops"
}

// AllModels 需要迁移的全部表
func AllModels() []interface{} {
	return []interface{}{&Track{}, &Stem{}, &Sample{}, &Loop{}}
}
