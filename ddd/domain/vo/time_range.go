package vo

import "fmt"

// TimeRange 曲目时间轴上的区间，单位秒
type TimeRange struct {
	Start float64
	End   float64
}

// NewTimeRange 校验 0 <= start < end
func NewTimeRange(start, end float64) (TimeRange, error) {
	if start < 0 {
		return TimeRange{}, fmt.Errorf("start time %.2f must not be negative", start)
	}
	if end <= start {
		return TimeRange{}, fmt.Errorf("end time %.2f must be greater than start time %.2f", end, start)
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration 区间长度
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}
