package vo

// SourceType 循环的来源类型
type SourceType string

const (
	SourceTypeStem   SourceType = "stem"
	SourceTypeSample SourceType = "sample"
)

// IsValid 检查来源类型是否有效
func (s SourceType) IsValid() bool {
	return s == SourceTypeStem || s == SourceTypeSample
}

func (s SourceType) String() string {
	return string(s)
}
