package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stem-service/ddd/domain/entity"
	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/repo"
	"stem-service/pkg/config"
)

func testStorage(root string) config.StorageConfig {
	return config.StorageConfig{
		UploadDir:  filepath.Join(root, "uploads"),
		OutputDir:  filepath.Join(root, "output"),
		SamplesDir: filepath.Join(root, "samples"),
		LoopsDir:   filepath.Join(root, "loops"),
	}
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// fakeSeparator 写出 <outputRoot>/<base>/<stem>.wav
type fakeSeparator struct {
	mu      sync.Mutex
	stems   []string
	err     error
	noDir   bool
	calls   int
	onStart func()
}

func (f *fakeSeparator) Separate(_ context.Context, audioPath, outputRoot string, _ int) error {
	f.mu.Lock()
	f.calls++
	hook := f.onStart
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return f.err
	}
	if f.noDir {
		return nil
	}
	base := filepath.Base(audioPath)
	base = base[:len(base)-len(filepath.Ext(base))]
	for _, s := range f.stems {
		if err := writeFile(filepath.Join(outputRoot, base, s+".wav"), "pcm "+s); err != nil {
			return err
		}
	}
	return os.MkdirAll(filepath.Join(outputRoot, base), 0o755)
}

func (f *fakeSeparator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDownloader struct {
	filename string
	err      error
}

func (f *fakeDownloader) Download(_ context.Context, _ string, dir string) (*port.DownloadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := filepath.Join(dir, f.filename)
	if err := writeFile(p, "mp3"); err != nil {
		return nil, err
	}
	return &port.DownloadResult{AudioPath: p, Title: "Remote", Artist: "Uploader"}, nil
}

type fakeAnalyzer struct {
	mu        sync.Mutex
	bpm       float64
	duration  float64
	tempoErr  error
	tempoPath []string
	durations map[string]float64
}

func (f *fakeAnalyzer) Duration(_ context.Context, p string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.durations[filepath.Base(p)]; ok {
		return d, nil
	}
	return f.duration, nil
}

func (f *fakeAnalyzer) Tempo(_ context.Context, p string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tempoPath = append(f.tempoPath, p)
	if f.tempoErr != nil {
		return 0, f.tempoErr
	}
	return f.bpm, nil
}

type trimCall struct {
	input, output    string
	offset, duration float64
}

type replicateCall struct {
	input, output string
	extraPlays    int
}

type fakeTranscoder struct {
	trims        []trimCall
	replicates   []replicateCall
	trimErr      error
	replicateErr error
}

func (f *fakeTranscoder) Trim(_ context.Context, input, output string, offset, duration float64) error {
	f.trims = append(f.trims, trimCall{input, output, offset, duration})
	if f.trimErr != nil {
		return f.trimErr
	}
	return writeFile(output, fmt.Sprintf("trim %.2f+%.2f", offset, duration))
}

func (f *fakeTranscoder) Replicate(_ context.Context, input, output string, extraPlays int) error {
	f.replicates = append(f.replicates, replicateCall{input, output, extraPlays})
	if f.replicateErr != nil {
		return f.replicateErr
	}
	if _, err := os.Stat(input); err != nil {
		return err
	}
	return writeFile(output, fmt.Sprintf("loop x%d", extraPlays+1))
}

func (f *fakeTranscoder) calls() int { return len(f.trims) + len(f.replicates) }

// memoryCatalog 内存版元数据存储，名称和文件名唯一
type memoryCatalog struct {
	mu        sync.Mutex
	nextID    uint64
	tracks    map[uint64]*entity.TrackEntity
	samples   map[uint64]*entity.SampleEntity
	loops     map[uint64]*entity.LoopEntity
	createErr error
}

var _ repo.CatalogRepository = (*memoryCatalog)(nil)

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		tracks:  make(map[uint64]*entity.TrackEntity),
		samples: make(map[uint64]*entity.SampleEntity),
		loops:   make(map[uint64]*entity.LoopEntity),
	}
}

func (m *memoryCatalog) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memoryCatalog) CreateTrack(_ context.Context, t *entity.TrackEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.tracks {
		if existing.Name() == t.Name() {
			return errors.New("UNIQUE constraint failed: tracks.name")
		}
	}
	for _, s := range t.Stems() {
		s.SetID(m.id())
	}
	t.SetID(m.id())
	m.tracks[t.ID()] = t
	return nil
}

func (m *memoryCatalog) GetTrackByID(_ context.Context, id uint64) (*entity.TrackEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracks[id], nil
}

func (m *memoryCatalog) GetTrackByName(_ context.Context, name string) (*entity.TrackEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memoryCatalog) TrackExists(ctx context.Context, name string) (bool, error) {
	t, err := m.GetTrackByName(ctx, name)
	return t != nil, err
}

func (m *memoryCatalog) ListTracks(context.Context) ([]*entity.TrackEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.TrackEntity, 0, len(m.tracks))
	for _, t := range m.tracks {
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryCatalog) UpdateOriginalFilename(_ context.Context, name, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.Name() == name {
			t.SetOriginalFilename(filename)
			return nil
		}
	}
	return nil
}

func (m *memoryCatalog) DeleteTrack(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tracks[id]
	delete(m.tracks, id)
	return ok, nil
}

func (m *memoryCatalog) CreateSample(_ context.Context, s *entity.SampleEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.samples {
		if existing.Filename() == s.Filename() {
			return errors.New("UNIQUE constraint failed: samples.filename")
		}
	}
	s.SetID(m.id())
	m.samples[s.ID()] = s
	return nil
}

func (m *memoryCatalog) GetSampleByID(_ context.Context, id uint64) (*entity.SampleEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples[id], nil
}

func (m *memoryCatalog) GetSampleByFilename(_ context.Context, filename string) (*entity.SampleEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.samples {
		if s.Filename() == filename {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memoryCatalog) ListSamples(context.Context) ([]*entity.SampleEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.SampleEntity, 0, len(m.samples))
	for _, s := range m.samples {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryCatalog) SampleExists(_ context.Context, filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.samples {
		if s.Filename() == filename {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryCatalog) DeleteSample(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.samples[id]
	delete(m.samples, id)
	return ok, nil
}

func (m *memoryCatalog) CreateLoop(_ context.Context, l *entity.LoopEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.loops {
		if existing.Filename() == l.Filename() {
			return errors.New("UNIQUE constraint failed: loops.filename")
		}
	}
	l.SetID(m.id())
	m.loops[l.ID()] = l
	return nil
}

func (m *memoryCatalog) GetLoopByID(_ context.Context, id uint64) (*entity.LoopEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loops[id], nil
}

func (m *memoryCatalog) GetLoopByFilename(_ context.Context, filename string) (*entity.LoopEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.loops {
		if l.Filename() == filename {
			return l, nil
		}
	}
	return nil, nil
}

func (m *memoryCatalog) ListLoops(context.Context) ([]*entity.LoopEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.LoopEntity, 0, len(m.loops))
	for _, l := range m.loops {
		out = append(out, l)
	}
	return out, nil
}

func (m *memoryCatalog) LoopExists(_ context.Context, filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.loops {
		if l.Filename() == filename {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryCatalog) DeleteLoop(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[id]
	delete(m.loops, id)
	return ok, nil
}

// statusRecorder 记录任务经历的状态序列
type statusRecorder struct {
	mu       sync.Mutex
	statuses map[string][]string
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{statuses: make(map[string][]string)}
}

func (r *statusRecorder) OnJobChanged(_ repo.JobEventType, job *entity.JobEntity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.statuses[job.JobID()]
	s := job.Status().String()
	if len(seq) == 0 || seq[len(seq)-1] != s {
		r.statuses[job.JobID()] = append(seq, s)
	}
}

func (r *statusRecorder) sequence(jobID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses[jobID]...)
}
