package vo

import (
	"fmt"
)

// StemCount 分离层数值对象，只允许 2、4、5
type StemCount int

const (
	StemCountTwo  StemCount = 2
	StemCountFour StemCount = 4
	StemCountFive StemCount = 5
)

// 固定的分离层名称，顺序即输出顺序
var stemNames = map[StemCount][]string{
	StemCountTwo:  {"vocals", "accompaniment"},
	StemCountFour: {"vocals", "drums", "bass", "other"},
	StemCountFive: {"vocals", "drums", "bass", "piano", "other"},
}

// NewStemCount 校验并创建分离层数
func NewStemCount(n int) (StemCount, error) {
	c := StemCount(n)
	if _, ok := stemNames[c]; !ok {
		return 0, fmt.Errorf("invalid stem count: %d, supported: [2 4 5]", n)
	}
	return c, nil
}

// Int 返回整数值
func (c StemCount) Int() int {
	return int(c)
}

// IsValid 检查层数是否受支持
func (c StemCount) IsValid() bool {
	_, ok := stemNames[c]
	return ok
}

// StemNames 返回该层数对应的分离层名称副本
func (c StemCount) StemNames() []string {
	names := stemNames[c]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// ModelName 返回分离工具的模型参数，例如 spleeter:4stems
func (c StemCount) ModelName(prefix string) string {
	if prefix == "" {
		prefix = "spleeter"
	}
	return fmt.Sprintf("%s:%dstems", prefix, int(c))
}

// StemNamesFor 按层数返回分离层名称
func StemNamesFor(n int) ([]string, error) {
	c, err := NewStemCount(n)
	if err != nil {
		return nil, err
	}
	return c.StemNames(), nil
}
