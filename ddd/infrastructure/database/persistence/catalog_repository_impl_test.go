package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/vo"
	"stem-service/ddd/infrastructure/database/po"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "stems.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(po.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func float(v float64) *float64 { return &v }

func newTrack(name string) *entity.TrackEntity {
	track := entity.NewTrackEntity(name, 2)
	track.SetAnalysis(float(120), float(180.5))
	track.AddStem(entity.NewStemEntity("vocals", "vocals.wav", float(180.5)))
	track.AddStem(entity.NewStemEntity("accompaniment", "accompaniment.wav", nil))
	return track
}

func TestTrackCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepository(newTestDB(t))

	track := newTrack("song")
	require.NoError(t, r.CreateTrack(ctx, track))
	require.NotZero(t, track.ID())
	for _, s := range track.Stems() {
		assert.NotZero(t, s.ID())
		assert.Equal(t, track.ID(), s.TrackID())
	}

	got, err := r.GetTrackByID(ctx, track.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "song", got.Name())
	assert.Equal(t, 2, got.StemCount())
	require.NotNil(t, got.BPM())
	assert.Equal(t, 120.0, *got.BPM())
	assert.Nil(t, got.OriginalFilename())

	require.Len(t, got.Stems(), 2)
	assert.Equal(t, "accompaniment", got.Stems()[0].Name())
	assert.Nil(t, got.Stems()[0].Duration())
	assert.Equal(t, "vocals", got.Stems()[1].Name())

	ok, err := r.TrackExists(ctx, "song")
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := r.GetTrackByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTrackNameIsUnique(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepository(newTestDB(t))

	require.NoError(t, r.CreateTrack(ctx, newTrack("song")))
	assert.Error(t, r.CreateTrack(ctx, newTrack("song")))

	list, err := r.ListTracks(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTrackListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepository(newTestDB(t))

	require.NoError(t, r.CreateTrack(ctx, newTrack("first")))
	require.NoError(t, r.CreateTrack(ctx, newTrack("second")))

	list, err := r.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name())
	assert.Equal(t, "first", list[1].Name())
}

func TestTrackDeleteRemovesStems(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewCatalogRepository(db)

	track := newTrack("song")
	require.NoError(t, r.CreateTrack(ctx, track))

	ok, err := r.DeleteTrack(ctx, track.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	var stems int64
	require.NoError(t, db.Model(&po.Stem{}).Count(&stems).Error)
	assert.Zero(t, stems)

	ok, err = r.DeleteTrack(ctx, track.ID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateOriginalFilename(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepository(newTestDB(t))
	require.NoError(t, r.CreateTrack(ctx, newTrack("song")))

	require.NoError(t, r.UpdateOriginalFilename(ctx, "song", "original.mp3"))
	got, err := r.GetTrackByName(ctx, "song")
	require.NoError(t, err)
	require.NotNil(t, got.OriginalFilename())
	assert.Equal(t, "original.mp3", *got.OriginalFilename())
}

func TestSampleLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepository(newTestDB(t))

	name := vo.SampleName{TrackName: "song", StemName: "vocals", StartTime: 10, EndTime: 15}
	sample := entity.NewSampleEntity(name)
	require.NoError(t, r.CreateSample(ctx, sample))
	require.NotZero(t, sample.ID())

	assert.Error(t, r.CreateSample(ctx, entity.NewSampleEntity(name)))

	ok, err := r.SampleExists(ctx, name.Filename())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.GetSampleByID(ctx, sample.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "song - vocals (10.00s-15.00s).wav", got.Filename())
	assert.InDelta(t, 5.0, got.Duration(), 1e-9)

	byName, err := r.GetSampleByFilename(ctx, name.Filename())
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, sample.ID(), byName.ID())

	list, err := r.ListSamples(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := r.DeleteSample(ctx, sample.ID())
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = r.GetSampleByID(ctx, sample.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoopLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepository(newTestDB(t))

	name := vo.LoopName{
		SampleName: vo.SampleName{TrackName: "song", StemName: "drums", StartTime: 0, EndTime: 5},
		LoopCount:  3,
	}
	loop := entity.NewLoopEntity(vo.SourceTypeSample, name)
	require.NoError(t, r.CreateLoop(ctx, loop))

	got, err := r.GetLoopByID(ctx, loop.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, vo.SourceTypeSample, got.SourceType())
	assert.Equal(t, 3, got.LoopCount())
	assert.InDelta(t, 15.0, got.Duration(), 1e-9)

	byName, err := r.GetLoopByFilename(ctx, "song - drums (0.00s-5.00s) x3.wav")
	require.NoError(t, err)
	require.NotNil(t, byName)

	ok, err := r.LoopExists(ctx, name.Filename())
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := r.DeleteLoop(ctx, loop.ID())
	require.NoError(t, err)
	assert.True(t, deleted)

	list, err := r.ListLoops(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
