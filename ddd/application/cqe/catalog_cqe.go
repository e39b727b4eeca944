package cqe

import (
	"strings"

	"stem-service/ddd/domain/vo"
	"stem-service/pkg/errno"
)

// IDCqe 按自增ID操作曲目、片段或循环
type IDCqe struct {
	ID uint64 `uri:"id" binding:"required,min=1"`
}

// CreateSampleCqe 从分离层截取片段
type CreateSampleCqe struct {
	TrackName string  `json:"track_name" binding:"required"`
	StemName  string  `json:"stem_name" binding:"required"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

func (c *CreateSampleCqe) Validate() error {
	c.TrackName = strings.TrimSpace(c.TrackName)
	c.StemName = strings.TrimSpace(c.StemName)
	if c.TrackName == "" || c.StemName == "" {
		return errno.NewBizErrorf(errno.ErrMissingParam, "track_name and stem_name are required")
	}
	if err := validateNameSegment(c.TrackName); err != nil {
		return err
	}
	if err := validateNameSegment(c.StemName); err != nil {
		return err
	}
	if _, err := vo.NewTimeRange(c.Start, c.End); err != nil {
		return errno.NewBizError(errno.ErrInvalidTimeRange, err)
	}
	return nil
}

// CreateLoopCqe 从分离层或已有片段合成循环
//
// source_type=stem 时需要 track_name、stem_name、start、end；
// source_type=sample 时需要 sample_id，start/end 缺省取片段范围
type CreateLoopCqe struct {
	SourceType string   `json:"source_type" binding:"required"`
	TrackName  string   `json:"track_name"`
	StemName   string   `json:"stem_name"`
	SampleID   uint64   `json:"sample_id"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	LoopCount  int      `json:"loop_count"`
}

func (c *CreateLoopCqe) Validate() error {
	c.SourceType = strings.ToLower(strings.TrimSpace(c.SourceType))
	if !vo.SourceType(c.SourceType).IsValid() {
		return errno.NewBizErrorf(errno.ErrInvalidSourceType, "source_type=%q", c.SourceType)
	}
	if c.LoopCount < vo.MinLoopCount {
		return errno.NewBizErrorf(errno.ErrInvalidLoopCount, "loop_count=%d", c.LoopCount)
	}

	switch vo.SourceType(c.SourceType) {
	case vo.SourceTypeSample:
		if c.SampleID == 0 {
			return errno.NewBizErrorf(errno.ErrMissingParam, "sample_id is required")
		}
	case vo.SourceTypeStem:
		c.TrackName = strings.TrimSpace(c.TrackName)
		c.StemName = strings.TrimSpace(c.StemName)
		if c.TrackName == "" || c.StemName == "" {
			return errno.NewBizErrorf(errno.ErrMissingParam, "track_name and stem_name are required")
		}
		if err := validateNameSegment(c.TrackName); err != nil {
			return err
		}
		if err := validateNameSegment(c.StemName); err != nil {
			return err
		}
		if c.Start == nil || c.End == nil {
			return errno.NewBizErrorf(errno.ErrInvalidTimeRange, "start and end are required")
		}
	}

	if c.Start != nil && c.End != nil {
		if _, err := vo.NewTimeRange(*c.Start, *c.End); err != nil {
			return errno.NewBizError(errno.ErrInvalidTimeRange, err)
		}
	}
	return nil
}

// validateNameSegment 名字会拼进磁盘路径，不能跳出存储目录
func validateNameSegment(name string) error {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.Contains(name, "..") {
		return errno.NewBizErrorf(errno.ErrFileNameIllegal, "name %q", name)
	}
	return nil
}
