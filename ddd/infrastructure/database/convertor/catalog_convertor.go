package convertor

import (
	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/vo"
	"stem-service/ddd/infrastructure/database/po"
)

// CatalogConvertor 目录实体与持久化对象互转
type CatalogConvertor struct{}

// NewCatalogConvertor 创建目录转换器
func NewCatalogConvertor() *CatalogConvertor {
	return &CatalogConvertor{}
}

// TrackToEntity 将PO转换为Entity
func (c *CatalogConvertor) TrackToEntity(p *po.Track) *entity.TrackEntity {
	if p == nil {
		return nil
	}
	stems := make([]*entity.StemEntity, 0, len(p.Stems))
	for _, s := range p.Stems {
		stems = append(stems, entity.NewStemEntityWithDetails(s.Id, s.TrackID, s.Name, s.Filename, s.Duration))
	}
	return entity.NewTrackEntityWithDetails(p.Id, p.Name, p.BPM, p.Duration, p.StemCount, p.OriginalFilename, p.CreatedAt, stems)
}

// TrackToPO 将Entity转换为PO，分离层一并转换
func (c *CatalogConvertor) TrackToPO(t *entity.TrackEntity) *po.Track {
	p := &po.Track{
		BaseModel: po.BaseModel{
			Id:        t.ID(),
			CreatedAt: t.CreatedAt(),
		},
		Name:             t.Name(),
		BPM:              t.BPM(),
		Duration:         t.Duration(),
		StemCount:        t.StemCount(),
		OriginalFilename: t.OriginalFilename(),
	}
	for _, s := range t.Stems() {
		p.Stems = append(p.Stems, po.Stem{
			Id:       s.ID(),
			TrackID:  t.ID(),
			Name:     s.Name(),
			Filename: s.Filename(),
			Duration: s.Duration(),
		})
	}
	return p
}

func (c *CatalogConvertor) SampleToEntity(p *po.Sample) *entity.SampleEntity {
	if p == nil {
		return nil
	}
	return entity.NewSampleEntityWithDetails(p.Id, p.TrackName, p.StemName, p.Filename, p.StartTime, p.EndTime, p.Duration, p.CreatedAt)
}

func (c *CatalogConvertor) SampleToPO(s *entity.SampleEntity) *po.Sample {
	return &po.Sample{
		BaseModel: po.BaseModel{Id: s.ID(), CreatedAt: s.CreatedAt()},
		TrackName: s.TrackName(),
		StemName:  s.StemName(),
		Filename:  s.Filename(),
		StartTime: s.StartTime(),
		EndTime:   s.EndTime(),
		Duration:  s.Duration(),
	}
}

// LoopToEntity 未知的来源类型按 stem 处理
func (c *CatalogConvertor) LoopToEntity(p *po.Loop) *entity.LoopEntity {
	if p == nil {
		return nil
	}
	source := vo.SourceType(p.SourceType)
	if !source.IsValid() {
		source = vo.SourceTypeStem
	}
	return entity.NewLoopEntityWithDetails(p.Id, source, p.TrackName, p.StemName, p.Filename,
		p.StartTime, p.EndTime, p.LoopCount, p.Duration, p.CreatedAt)
}

func (c *CatalogConvertor) LoopToPO(l *entity.LoopEntity) *po.Loop {
	return &po.Loop{
		BaseModel:  po.BaseModel{Id: l.ID(), CreatedAt: l.CreatedAt()},
		SourceType: l.SourceType().String(),
		TrackName:  l.TrackName(),
		StemName:   l.StemName(),
		Filename:   l.Filename(),
		StartTime:  l.StartTime(),
		EndTime:    l.EndTime(),
		LoopCount:  l.LoopCount(),
		Duration:   l.Duration(),
	}
}
