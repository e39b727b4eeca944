package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stem-service/ddd/infrastructure/database/po"
)

type TrackDAO struct {
	db *gorm.DB
}

func NewTrackDAO(db *gorm.DB) *TrackDAO {
	return &TrackDAO{db: db}
}

// CreateWithStems 在一个事务内写入曲目和分离层
func (d *TrackDAO) CreateWithStems(ctx context.Context, track *po.Track) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stems := track.Stems
		track.Stems = nil
		if err := tx.Create(track).Error; err != nil {
			return err
		}
		for i := range stems {
			stems[i].TrackID = track.Id
		}
		if len(stems) > 0 {
			if err := tx.Create(&stems).Error; err != nil {
				return err
			}
		}
		track.Stems = stems
		return nil
	})
}

func (d *TrackDAO) FindByID(ctx context.Context, id uint64) (*po.Track, error) {
	var track po.Track
	err := d.db.WithContext(ctx).
		Preload("Stems", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("id = ?", id).
		First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (d *TrackDAO) FindByName(ctx context.Context, name string) (*po.Track, error) {
	var track po.Track
	err := d.db.WithContext(ctx).Where("name = ?", name).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (d *TrackDAO) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&po.Track{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 按创建时间倒序，不加载分离层
func (d *TrackDAO) List(ctx context.Context) ([]*po.Track, error) {
	var tracks []*po.Track
	if err := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

func (d *TrackDAO) UpdateOriginalFilename(ctx context.Context, name, filename string) error {
	return d.db.WithContext(ctx).Model(&po.Track{}).Where("name = ?", name).Update("original_filename", filename).Error
}

// Delete 显式删除分离层，不依赖驱动是否开启外键
func (d *TrackDAO) Delete(ctx context.Context, id uint64) (bool, error) {
	var affected int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", id).Delete(&po.Stem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&po.Track{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	return affected > 0, err
}

func (d *TrackDAO) CountStems(ctx context.Context, trackID uint64) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&po.Stem{}).Where("track_id = ?", trackID).Count(&count).Error
	return count, err
}
