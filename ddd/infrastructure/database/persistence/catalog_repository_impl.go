package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/repo"
	"stem-service/ddd/infrastructure/database/convertor"
	"stem-service/ddd/infrastructure/database/dao"
	"stem-service/pkg/errno"
)

type catalogRepositoryImpl struct {
	trackDao  *dao.TrackDAO
	sampleDao *dao.SampleDAO
	loopDao   *dao.LoopDAO
	convertor *convertor.CatalogConvertor
}

// NewCatalogRepository 基于 gorm 的元数据存储
func NewCatalogRepository(db *gorm.DB) repo.CatalogRepository {
	return &catalogRepositoryImpl{
		trackDao:  dao.NewTrackDAO(db),
		sampleDao: dao.NewSampleDAO(db),
		loopDao:   dao.NewLoopDAO(db),
		convertor: convertor.NewCatalogConvertor(),
	}
}

func (r *catalogRepositoryImpl) CreateTrack(ctx context.Context, track *entity.TrackEntity) error {
	p := r.convertor.TrackToPO(track)
	if err := r.trackDao.CreateWithStems(ctx, p); err != nil {
		return wrapWriteError(err, errno.ErrTrackExists)
	}
	for i, s := range track.Stems() {
		if i < len(p.Stems) {
			s.SetID(p.Stems[i].Id)
		}
	}
	track.SetID(p.Id)
	return nil
}

func (r *catalogRepositoryImpl) GetTrackByID(ctx context.Context, id uint64) (*entity.TrackEntity, error) {
	p, err := r.trackDao.FindByID(ctx, id)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return r.convertor.TrackToEntity(p), nil
}

func (r *catalogRepositoryImpl) GetTrackByName(ctx context.Context, name string) (*entity.TrackEntity, error) {
	p, err := r.trackDao.FindByName(ctx, name)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return r.convertor.TrackToEntity(p), nil
}

func (r *catalogRepositoryImpl) TrackExists(ctx context.Context, name string) (bool, error) {
	ok, err := r.trackDao.ExistsByName(ctx, name)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	return ok, nil
}

func (r *catalogRepositoryImpl) ListTracks(ctx context.Context) ([]*entity.TrackEntity, error) {
	list, err := r.trackDao.List(ctx)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	out := make([]*entity.TrackEntity, 0, len(list))
	for _, p := range list {
		out = append(out, r.convertor.TrackToEntity(p))
	}
	return out, nil
}

func (r *catalogRepositoryImpl) UpdateOriginalFilename(ctx context.Context, name, filename string) error {
	if err := r.trackDao.UpdateOriginalFilename(ctx, name, filename); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	return nil
}

func (r *catalogRepositoryImpl) DeleteTrack(ctx context.Context, id uint64) (bool, error) {
	ok, err := r.trackDao.Delete(ctx, id)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	return ok, nil
}

func (r *catalogRepositoryImpl) CreateSample(ctx context.Context, sample *entity.SampleEntity) error {
	p := r.convertor.SampleToPO(sample)
	if err := r.sampleDao.Create(ctx, p); err != nil {
		return wrapWriteError(err, errno.ErrDuplicateFilename)
	}
	sample.SetID(p.Id)
	return nil
}

func (r *catalogRepositoryImpl) GetSampleByID(ctx context.Context, id uint64) (*entity.SampleEntity, error) {
	p, err := r.sampleDao.FindByID(ctx, id)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return r.convertor.SampleToEntity(p), nil
}

func (r *catalogRepositoryImpl) GetSampleByFilename(ctx context.Context, filename string) (*entity.SampleEntity, error) {
	p, err := r.sampleDao.FindByFilename(ctx, filename)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return r.convertor.SampleToEntity(p), nil
}

func (r *catalogRepositoryImpl) ListSamples(ctx context.Context) ([]*entity.SampleEntity, error) {
	list, err := r.sampleDao.List(ctx)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	out := make([]*entity.SampleEntity, 0, len(list))
	for _, p := range list {
		out = append(out, r.convertor.SampleToEntity(p))
	}
	return out, nil
}

func (r *catalogRepositoryImpl) SampleExists(ctx context.Context, filename string) (bool, error) {
	ok, err := r.sampleDao.ExistsByFilename(ctx, filename)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	return ok, nil
}

func (r *catalogRepositoryImpl) DeleteSample(ctx context.Context, id uint64) (bool, error) {
	ok, err := r.sampleDao.Delete(ctx, id)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	return ok, nil
}

func (r *catalogRepositoryImpl) CreateLoop(ctx context.Context, loop *entity.LoopEntity) error {
	p := r.convertor.LoopToPO(loop)
	if err := r.loopDao.Create(ctx, p); err != nil {
		return wrapWriteError(err, errno.ErrDuplicateFilename)
	}
	loop.SetID(p.Id)
	return nil
}

func (r *catalogRepositoryImpl) GetLoopByID(ctx context.Context, id uint64) (*entity.LoopEntity, error) {
	p, err := r.loopDao.FindByID(ctx, id)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return r.convertor.LoopToEntity(p), nil
}

func (r *catalogRepositoryImpl) GetLoopByFilename(ctx context.Context, filename string) (*entity.LoopEntity, error) {
	p, err := r.loopDao.FindByFilename(ctx, filename)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return r.convertor.LoopToEntity(p), nil
}

func (r *catalogRepositoryImpl) ListLoops(ctx context.Context) ([]*entity.LoopEntity, error) {
	list, err := r.loopDao.List(ctx)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	out := make([]*entity.LoopEntity, 0, len(list))
	for _, p := range list {
		out = append(out, r.convertor.LoopToEntity(p))
	}
	return out, nil
}

func (r *catalogRepositoryImpl) LoopExists(ctx context.Context, filename string) (bool, error) {
	ok, err := r.loopDao.ExistsByFilename(ctx, filename)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	return ok, nil
}

func (r *catalogRepositoryImpl) DeleteLoop(ctx context.Context, id uint64) (bool, error) {
	ok, err := r.loopDao.Delete(ctx, id)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	return ok, nil
}

// wrapWriteError 唯一键冲突映射为业务错误，其余为数据库错误
func wrapWriteError(err error, duplicate *errno.Errno) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errno.NewBizError(duplicate, err)
	}
	return errno.NewBizError(errno.ErrDatabase, err)
}
