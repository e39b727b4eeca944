package vo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// 衍生文件名编码：
//
//	片段: "<track> - <stem> (<start>s-<end>s).wav"
//	循环: "<track> - <stem> (<start>s-<end>s) x<count>.wav"
//
// 时间固定两位小数且整数部分没有前导零，次数同样没有前导零。track 组是贪婪匹配，
// 所以曲目名本身可以包含 " - "，最后一个 " - " 之后才是分离层名。
// 解析结果必须能重新编码回同一个文件名，否则视为不匹配。
var (
	sampleNamePattern = regexp.MustCompile(`^(.+) - (.+) \(((?:0|[1-9]\d*)\.\d{2})s-((?:0|[1-9]\d*)\.\d{2})s\)\.wav$`)
	loopNamePattern   = regexp.MustCompile(`^(.+) - (.+) \(((?:0|[1-9]\d*)\.\d{2})s-((?:0|[1-9]\d*)\.\d{2})s\) x([1-9]\d*)\.wav$`)
)

// ErrNameNotMatched 文件名不符合衍生文件编码
var ErrNameNotMatched = errors.New("filename does not match derived encoding")

// MinLoopCount 循环最少重复次数
const MinLoopCount = 2

// SampleName 片段文件名携带的元数据
type SampleName struct {
	TrackName string
	StemName  string
	StartTime float64
	EndTime   float64
}

// LoopName 循环文件名携带的元数据
type LoopName struct {
	SampleName
	LoopCount int
}

// Filename 编码片段文件名
func (n SampleName) Filename() string {
	return fmt.Sprintf("%s - %s (%.2fs-%.2fs).wav", n.TrackName, n.StemName, n.StartTime, n.EndTime)
}

// Duration 片段时长
func (n SampleName) Duration() float64 {
	return n.EndTime - n.StartTime
}

// Validate 检查名字字段能否被无损解析回来
func (n SampleName) Validate() error {
	if strings.TrimSpace(n.TrackName) == "" {
		return errors.New("track name is required")
	}
	if strings.TrimSpace(n.StemName) == "" {
		return errors.New("stem name is required")
	}
	if strings.Contains(n.StemName, " - ") {
		return fmt.Errorf("stem name %q must not contain \" - \"", n.StemName)
	}
	if strings.ContainsAny(n.TrackName+n.StemName, `/\`) {
		return errors.New("names must not contain path separators")
	}
	return nil
}

// Filename 编码循环文件名
func (n LoopName) Filename() string {
	return fmt.Sprintf("%s - %s (%.2fs-%.2fs) x%d.wav", n.TrackName, n.StemName, n.StartTime, n.EndTime, n.LoopCount)
}

// Duration 循环总时长 = 片段时长 * 次数
func (n LoopName) Duration() float64 {
	return (n.EndTime - n.StartTime) * float64(n.LoopCount)
}

// ParseSampleName 解析片段文件名
func ParseSampleName(filename string) (SampleName, error) {
	m := sampleNamePattern.FindStringSubmatch(filename)
	if m == nil {
		return SampleName{}, fmt.Errorf("%w: %s", ErrNameNotMatched, filename)
	}
	start, end, err := parseRange(m[3], m[4])
	if err != nil {
		return SampleName{}, fmt.Errorf("%w: %s", err, filename)
	}
	name := SampleName{TrackName: m[1], StemName: m[2], StartTime: start, EndTime: end}
	if name.Filename() != filename {
		return SampleName{}, fmt.Errorf("%w: non-canonical %s", ErrNameNotMatched, filename)
	}
	return name, nil
}

// ParseLoopName 解析循环文件名
func ParseLoopName(filename string) (LoopName, error) {
	m := loopNamePattern.FindStringSubmatch(filename)
	if m == nil {
		return LoopName{}, fmt.Errorf("%w: %s", ErrNameNotMatched, filename)
	}
	start, end, err := parseRange(m[3], m[4])
	if err != nil {
		return LoopName{}, fmt.Errorf("%w: %s", err, filename)
	}
	count, err := strconv.Atoi(m[5])
	if err != nil {
		return LoopName{}, fmt.Errorf("loop count: %w", err)
	}
	if count < MinLoopCount {
		return LoopName{}, fmt.Errorf("%w: loop count %d below %d", ErrNameNotMatched, count, MinLoopCount)
	}
	name := LoopName{
		SampleName: SampleName{TrackName: m[1], StemName: m[2], StartTime: start, EndTime: end},
		LoopCount:  count,
	}
	if name.Filename() != filename {
		return LoopName{}, fmt.Errorf("%w: non-canonical %s", ErrNameNotMatched, filename)
	}
	return name, nil
}

func parseRange(startStr, endStr string) (float64, float64, error) {
	start, err := strconv.ParseFloat(startStr, 64)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.ParseFloat(endStr, 64)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// RoundCentis 把秒数舍入到文件名中的两位精度
func RoundCentis(v float64) float64 {
	parsed, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return parsed
}
