package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/vo"
	"stem-service/ddd/infrastructure/jobstore"
	"stem-service/ddd/infrastructure/queue"
	"stem-service/pkg/config"
	"stem-service/pkg/errno"
)

type pipelineFixture struct {
	storage    config.StorageConfig
	registry   *jobstore.MemoryJobRegistry
	queue      *queue.MemoryTaskQueue
	separator  *fakeSeparator
	downloader *fakeDownloader
	analyzer   *fakeAnalyzer
	catalog    *memoryCatalog
	recorder   *statusRecorder
	svc        PipelineService
}

func newPipelineFixture(t *testing.T, stems ...string) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		storage:    testStorage(t.TempDir()),
		queue:      queue.NewMemoryTaskQueue(4),
		separator:  &fakeSeparator{stems: stems},
		downloader: &fakeDownloader{filename: "remote song.mp3"},
		analyzer:   &fakeAnalyzer{bpm: 120, duration: 30},
		catalog:    newMemoryCatalog(),
		recorder:   newStatusRecorder(),
	}
	f.registry = jobstore.NewMemoryJobRegistry(nil, f.recorder)
	f.svc = NewPipelineService(PipelineDependencies{
		Registry:   f.registry,
		Queue:      f.queue,
		Separator:  f.separator,
		Downloader: f.downloader,
		Analyzer:   f.analyzer,
		Tracks:     f.catalog,
	}, f.storage, config.SeparatorConfig{MaxConcurrent: 1})
	return f
}

// upload 模拟上传接口把文件放到 uploads/<jobId>/
func (f *pipelineFixture) upload(t *testing.T, jobID, filename string) string {
	t.Helper()
	p := filepath.Join(f.storage.UploadDir, jobID, filename)
	require.NoError(t, writeFile(p, "ID3 audio"))
	return p
}

// runNext 取出队首任务并同步执行
func (f *pipelineFixture) runNext(t *testing.T) (*entity.PipelineTask, error) {
	t.Helper()
	task, err := f.queue.Dequeue(context.Background())
	require.NoError(t, err)
	runErr := f.svc.Run(context.Background(), task)
	task.Finish(runErr)
	return task, runErr
}

func TestPipelineUploadTwoStems(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "accompaniment")
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")

	handle, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
	require.NoError(t, err)

	_, err = f.runNext(t)
	require.NoError(t, err)
	<-handle.Done()
	assert.NoError(t, handle.Err())

	got, ok := f.registry.Get(job.JobID())
	require.True(t, ok)
	assert.Equal(t, vo.JobStatusCompleted, got.Status())
	assert.Equal(t, entity.JobMessageCompleted, got.Message())
	assert.Equal(t, "song", got.AudioName())
	assert.Equal(t, map[string]string{
		"vocals":        "/output/song/vocals.wav",
		"accompaniment": "/output/song/accompaniment.wav",
	}, got.Stems())
	assert.Equal(t, []string{"pending", "processing", "completed"}, f.recorder.sequence(job.JobID()))

	track, err := f.catalog.GetTrackByName(context.Background(), "song")
	require.NoError(t, err)
	require.NotNil(t, track)
	assert.Equal(t, 2, track.StemCount())
	assert.Len(t, track.Stems(), 2)
	require.NotNil(t, track.BPM())
	assert.Equal(t, 120.0, *track.BPM())
	require.NotNil(t, track.OriginalFilename())
	assert.Equal(t, "original.mp3", *track.OriginalFilename())
	assert.FileExists(t, filepath.Join(f.storage.OutputDir, "song", "original.mp3"))

	require.Len(t, f.analyzer.tempoPath, 1)
	assert.Equal(t, "vocals.wav", filepath.Base(f.analyzer.tempoPath[0]))
}

func TestPipelineOutputDirMissing(t *testing.T) {
	f := newPipelineFixture(t)
	f.separator.noDir = true
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	assert.True(t, errors.Is(err, errno.ErrOutputDirMissing))

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
	assert.Equal(t, "Output directory not found", got.Message())
	assert.Empty(t, got.Stems())
}

func TestPipelineSeparatorFailureKeepsDiagnostics(t *testing.T) {
	f := newPipelineFixture(t)
	f.separator.err = &port.ToolError{Tool: "spleeter", ExitCode: 1, Stderr: []string{"model not found"}}
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountFour)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.Error(t, err)

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
	assert.Contains(t, got.Message(), "model not found")
	assert.Equal(t, []string{"pending", "processing", "error"}, f.recorder.sequence(job.JobID()))

	exists, _ := f.catalog.TrackExists(context.Background(), "song")
	assert.False(t, exists)
}

func TestPipelinePartialStems(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "drums")
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "beat.wav")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountFour)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.NoError(t, err)

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusCompleted, got.Status())
	assert.Len(t, got.Stems(), 2)
	assert.NotContains(t, got.Stems(), "bass")

	track, _ := f.catalog.GetTrackByName(context.Background(), "beat")
	require.NotNil(t, track)
	assert.Equal(t, 4, track.StemCount())
	assert.Len(t, track.Stems(), 2)
}

func TestPipelineCatalogFailureStillCompletes(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "accompaniment")
	f.catalog.createErr = errors.New("database is locked")
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.NoError(t, err)

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusCompleted, got.Status())
	assert.Len(t, got.Stems(), 2)
}

func TestPipelineExistingTrackNotDuplicated(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "accompaniment")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		job := f.registry.Create()
		path := f.upload(t, job.JobID(), "song.mp3")
		_, err := f.svc.Submit(ctx, job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
		require.NoError(t, err)
		_, err = f.runNext(t)
		require.NoError(t, err)
	}

	tracks, err := f.catalog.ListTracks(ctx)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func TestPipelineUnanalyzableTrackHasNullAnalysis(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "accompaniment")
	f.analyzer.tempoErr = errors.New("aubio: unsupported file")
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.NoError(t, err)

	track, _ := f.catalog.GetTrackByName(context.Background(), "song")
	require.NotNil(t, track)
	assert.Nil(t, track.BPM())
	require.NotNil(t, track.Duration())
	assert.Equal(t, 30.0, *track.Duration())
}

func TestPipelineURLAcquisition(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "accompaniment")
	job := f.registry.Create()

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewURLAcquisition("https://example.com/v"), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.NoError(t, err)

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusCompleted, got.Status())
	assert.Equal(t, "remote song", got.AudioName())
	assert.FileExists(t, filepath.Join(f.storage.UploadDir, job.JobID(), "remote song.mp3"))
}

func TestPipelineDownloadFailure(t *testing.T) {
	f := newPipelineFixture(t, "vocals")
	f.downloader.err = errors.New("HTTP Error 404: Not Found")
	job := f.registry.Create()

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewURLAcquisition("https://example.com/v"), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.Error(t, err)

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
	assert.Equal(t, "HTTP Error 404: Not Found", got.Message())
	assert.Equal(t, 0, f.separator.Calls())
}

func TestPipelineFetchedFileMissing(t *testing.T) {
	f := newPipelineFixture(t, "vocals")
	job := f.registry.Create()
	missing := filepath.Join(f.storage.UploadDir, "other", "gone.mp3")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewFetchedAcquisition(missing), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	require.Error(t, err)

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
	assert.Equal(t, []string{"pending", "error"}, f.recorder.sequence(job.JobID()))
}

func TestPipelineCancelledBeforeSeparation(t *testing.T) {
	f := newPipelineFixture(t, "vocals")
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.registry.Update(job.JobID(), func(j *entity.JobEntity) error { return j.RequestCancel() })
	require.NoError(t, err)

	_, err = f.runNext(t)
	assert.True(t, errors.Is(err, ErrJobCancelled))

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
	assert.Equal(t, entity.JobMessageCancelled, got.Message())
	assert.Equal(t, 0, f.separator.Calls())
}

func TestPipelineCancelledDuringSeparation(t *testing.T) {
	f := newPipelineFixture(t, "vocals", "accompaniment")
	job := f.registry.Create()
	path := f.upload(t, job.JobID(), "song.mp3")
	f.separator.onStart = func() {
		_, _ = f.registry.Update(job.JobID(), func(j *entity.JobEntity) error { return j.RequestCancel() })
	}

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition(path), vo.StemCountTwo)
	require.NoError(t, err)
	_, err = f.runNext(t)
	assert.True(t, errors.Is(err, ErrJobCancelled))

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
	assert.Equal(t, 1, f.separator.Calls())
	_, statErr := os.Stat(filepath.Join(f.storage.OutputDir, "song", "vocals.wav"))
	assert.NoError(t, statErr, "separation is not pre-empted")
}

func TestPipelineSubmitQueueFull(t *testing.T) {
	f := newPipelineFixture(t, "vocals")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		j := f.registry.Create()
		_, err := f.svc.Submit(ctx, j.JobID(), vo.NewURLAcquisition("https://e/x"), vo.StemCountTwo)
		require.NoError(t, err)
	}

	job := f.registry.Create()
	handle, err := f.svc.Submit(ctx, job.JobID(), vo.NewURLAcquisition("https://e/x"), vo.StemCountTwo)
	assert.Nil(t, handle)
	assert.True(t, errors.Is(err, errno.ErrQueueFull))

	got, _ := f.registry.Get(job.JobID())
	assert.Equal(t, vo.JobStatusError, got.Status())
}

func TestPipelineSubmitValidation(t *testing.T) {
	f := newPipelineFixture(t)
	job := f.registry.Create()

	_, err := f.svc.Submit(context.Background(), job.JobID(), vo.NewUploadAcquisition("x.mp3"), vo.StemCount(3))
	assert.True(t, errors.Is(err, errno.ErrInvalidStemCount))

	_, err = f.svc.Submit(context.Background(), job.JobID(), vo.NewURLAcquisition("  "), vo.StemCountTwo)
	assert.True(t, errors.Is(err, errno.ErrAcquisitionRequired))
	assert.Equal(t, 0, f.queue.Size())
}

func TestTrackLocksSerializeSameName(t *testing.T) {
	locks := NewTrackLocks()
	unlock := locks.Lock("song")

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("song")
		close(acquired)
		release()
	}()

	other := locks.Lock("other")
	other()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock early")
	default:
	}
	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return locks.Len() == 0 }, time.Second, 10*time.Millisecond)
}
