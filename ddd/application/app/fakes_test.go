package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"stem-service/ddd/domain/port"
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

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, _ string, dir string) (*port.DownloadResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	p := filepath.Join(dir, "Remote Song.mp3")
	if err := os.WriteFile(p, []byte("mp3"), 0o644); err != nil {
		return nil, err
	}
	return &port.DownloadResult{AudioPath: p, Title: "Remote Song", Artist: "Someone", Thumbnail: "https://img/t.jpg"}, nil
}

func (f *fakeDownloader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAnalyzer struct {
	duration    float64
	tempo       float64
	durationErr error
	tempoErr    error
	seen        []string
}

func (f *fakeAnalyzer) Duration(_ context.Context, p string) (float64, error) {
	f.seen = append(f.seen, p)
	return f.duration, f.durationErr
}

func (f *fakeAnalyzer) Tempo(_ context.Context, p string) (float64, error) {
	return f.tempo, f.tempoErr
}

// fakeTranscoder 把输入内容写到输出文件
type fakeTranscoder struct {
	trims      int
	replicates []int
	err        error
}

func (f *fakeTranscoder) Trim(_ context.Context, input, output string, _, _ float64) error {
	f.trims++
	if f.err != nil {
		return f.err
	}
	return copyContent(input, output)
}

func (f *fakeTranscoder) Replicate(_ context.Context, input, output string, extraPlays int) error {
	f.replicates = append(f.replicates, extraPlays)
	if f.err != nil {
		return f.err
	}
	return copyContent(input, output)
}

func copyContent(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

type fakeMirror struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{objects: make(map[string]string)}
}

func (f *fakeMirror) MirrorFile(_ context.Context, localPath, objectKey, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.objects[objectKey] = localPath
	return objectKey, nil
}

func (f *fakeMirror) RemoveObject(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectKey)
	return nil
}

func (f *fakeMirror) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

var errBoom = errors.New("boom")
