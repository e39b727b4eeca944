package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stem-service/ddd/infrastructure/database/po"
)

type SampleDAO struct {
	db *gorm.DB
}

func NewSampleDAO(db *gorm.DB) *SampleDAO {
	return &SampleDAO{db: db}
}

func (d *SampleDAO) Create(ctx context.Context, sample *po.Sample) error {
	return d.db.WithContext(ctx).Model(&po.Sample{}).Create(sample).Error
}

func (d *SampleDAO) FindByID(ctx context.Context, id uint64) (*po.Sample, error) {
	var sample po.Sample
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

func (d *SampleDAO) FindByFilename(ctx context.Context, filename string) (*po.Sample, error) {
	var sample po.Sample
	err := d.db.WithContext(ctx).Where("filename = ?", filename).First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

func (d *SampleDAO) List(ctx context.Context) ([]*po.Sample, error) {
	var samples []*po.Sample
	if err := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&samples).Error; err != nil {
		return nil, err
	}
	return samples, nil
}

func (d *SampleDAO) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&po.Sample{}).Where("filename = ?", filename).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *SampleDAO) Delete(ctx context.Context, id uint64) (bool, error) {
	res := d.db.WithContext(ctx).Where("id = ?", id).Delete(&po.Sample{})
	return res.RowsAffected > 0, res.Error
}

type LoopDAO struct {
	db *gorm.DB
}

func NewLoopDAO(db *gorm.DB) *LoopDAO {
	return &LoopDAO{db: db}
}

func (d *LoopDAO) Create(ctx context.Context, loop *po.Loop) error {
	return d.db.WithContext(ctx).Model(&po.Loop{}).Create(loop).Error
}

func (d *LoopDAO) FindByID(ctx context.Context, id uint64) (*po.Loop, error) {
	var loop po.Loop
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&loop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loop, nil
}

func (d *LoopDAO) FindByFilename(ctx context.Context, filename string) (*po.Loop, error) {
	var loop po.Loop
	err := d.db.WithContext(ctx).Where("filename = ?", filename).First(&loop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loop, nil
}

func (d *LoopDAO) List(ctx context.Context) ([]*po.Loop, error) {
	var loops []*po.Loop
	if err := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&loops).Error; err != nil {
		return nil, err
	}
	return loops, nil
}

func (d *LoopDAO) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&po.Loop{}).Where("filename = ?", filename).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *LoopDAO) Delete(ctx context.Context, id uint64) (bool, error) {
	res := d.db.WithContext(ctx).Where("id = ?", id).Delete(&po.Loop{})
	return res.RowsAffected > 0, res.Error
}
