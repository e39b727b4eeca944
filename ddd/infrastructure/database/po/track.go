package po

// Track 曲目持久化对象，name 同时是输出目录名
type Track struct {
	BaseModel
	Name             string   `gorm:"column:name;type:varchar(255);uniqueIndex;not null" json:"name"`
	BPM              *float64 `gorm:"column:bpm" json:"bpm"`
	Duration         *float64 `gorm:"column:duration" json:"duration"`
	StemCount        int      `gorm:"column:stem_count;not null" json:"stem_count"`
	OriginalFilename *string  `gorm:"column:original_filename;type:varchar(512)" json:"original_filename"`
	Stems            []Stem   `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE" json:"stems,omitempty"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// Stem 分离层持久化对象
type Stem struct {
	Id       uint64   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TrackID  uint64   `gorm:"column:track_id;index;not null" json:"track_id"`
	Name     string   `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Filename string   `gorm:"column:filename;type:varchar(512);not null" json:"filename"`
	Duration *float64 `gorm:"column:duration" json:"duration"`
}

// TableName 指定表名
func (Stem) TableName() string {
	return "stems"
}
