package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stem-service/ddd/application/app"
	"stem-service/ddd/domain/port"
	"stem-service/ddd/domain/service"
	"stem-service/ddd/infrastructure/database/persistence"
	"stem-service/ddd/infrastructure/database/po"
	"stem-service/ddd/infrastructure/jobstore"
	"stem-service/ddd/infrastructure/queue"
	"stem-service/ddd/infrastructure/worker"
	"stem-service/pkg/config"
	"stem-service/pkg/repository"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Duration(context.Context, string) (float64, error) { return 12.5, nil }
func (stubAnalyzer) Tempo(context.Context, string) (float64, error)    { return 120, nil }

type stubDownloader struct{}

func (stubDownloader) Download(_ context.Context, _ string, dir string) (*port.DownloadResult, error) {
	p := filepath.Join(dir, "remote.mp3")
	if err := os.WriteFile(p, []byte("mp3"), 0o644); err != nil {
		return nil, err
	}
	return &port.DownloadResult{AudioPath: p, Title: "remote"}, nil
}

type copyTranscoder struct{}

func (copyTranscoder) Trim(_ context.Context, input, output string, _, _ float64) error {
	return copyFile(input, output)
}

func (copyTranscoder) Replicate(_ context.Context, input, output string, _ int) error {
	return copyFile(input, output)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T) (*gin.Engine, config.StorageConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	storage := config.StorageConfig{
		UploadDir:  filepath.Join(root, "uploads"),
		OutputDir:  filepath.Join(root, "output"),
		SamplesDir: filepath.Join(root, "samples"),
		LoopsDir:   filepath.Join(root, "loops"),
	}

	db, err := repository.NewDatabase(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(root, "stems.db")}, po.AllModels()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })
	catalog := persistence.NewCatalogRepository(db)

	registry := jobstore.NewMemoryJobRegistry(jobstore.NewDirCleaner(storage.UploadDir, storage.OutputDir))
	q := queue.NewMemoryTaskQueue(8)
	locks := service.NewTrackLocks()
	pipeline := service.NewPipelineService(service.PipelineDependencies{
		Registry: registry, Queue: q, Downloader: stubDownloader{}, Analyzer: stubAnalyzer{}, Tracks: catalog, Locks: locks,
	}, storage, config.SeparatorConfig{MaxConcurrent: 1})

	mediaApp := app.NewMediaApp(stubDownloader{}, stubAnalyzer{}, storage, 0)
	t.Cleanup(mediaApp.Close)
	catalogApp := app.NewCatalogApp(app.CatalogDependencies{
		Catalog:    catalog,
		Derived:    service.NewDerivedMediaService(copyTranscoder{}, storage),
		Reconciler: service.NewCatalogReconciler(catalog, stubAnalyzer{}, storage, locks),
		Locks:      locks,
	}, storage)

	router := NewRouter(
		app.NewJobApp(registry, pipeline, storage),
		mediaApp,
		catalogApp,
		app.NewWorkerApp(worker.NewWorkerManager(), q, registry),
		storage,
		config.ServerConfig{MaxUploadSizeMB: 1},
	)
	engine := gin.New()
	router.SetupMiddleware(engine, false)
	router.SetupRoutes(engine)

	require.NoError(t, os.MkdirAll(filepath.Join(storage.OutputDir, "song"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(storage.OutputDir, "song", "vocals.wav"), []byte("vocals"), 0o644))
	return engine, storage
}

func do(engine *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func multipartRequest(t *testing.T, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestJobEndpoints(t *testing.T) {
	engine, storage := newTestEngine(t)

	w, env := do(engine, multipartRequest(t, "/api/v1/jobs", map[string]string{"num_stems": "4"}, "song.mp3", "mp3"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var accepted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, "started", accepted.Status)
	assert.FileExists(t, filepath.Join(storage.UploadDir, accepted.JobID, "song.mp3"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env = do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+accepted.JobID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Status string            `json:"status"`
		Stems  map[string]string `json:"stems"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "pending", status.Status)

	w, _ = do(engine, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+accepted.JobID+"/cancel", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(engine, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+accepted.JobID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"deleted"`)

	w, _ = do(engine, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+accepted.JobID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+accepted.JobID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitJobValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	w, env := do(engine, multipartRequest(t, "/api/v1/jobs", nil, "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotZero(t, env.Code)

	w, _ = do(engine, multipartRequest(t, "/api/v1/jobs", map[string]string{"url": "https://x", "num_stems": "3"}, "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(engine, multipartRequest(t, "/api/v1/jobs", map[string]string{"url": "https://x", "num_stems": "two"}, "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitJobTooLarge(t *testing.T) {
	engine, _ := newTestEngine(t)
	w, _ := do(engine, multipartRequest(t, "/api/v1/jobs", nil, "big.wav", strings.Repeat("x", 2<<20)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMediaEndpoints(t *testing.T) {
	engine, _ := newTestEngine(t)

	w, env := do(engine, multipartRequest(t, "/api/v1/analyze", nil, "clip.wav", "pcm"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"bpm":120,"duration":12.5}`, string(env.Data))

	w, _ = do(engine, multipartRequest(t, "/api/v1/analyze", nil, "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(engine, multipartRequest(t, "/api/v1/fetch", map[string]string{"url": "https://example.com/v"}, "", ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fetched struct {
		AudioURL string `json:"audio_url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fetched))

	w, _ = do(engine, httptest.NewRequest(http.MethodGet, fetched.AudioURL, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	engine, _ := newTestEngine(t)

	w, env := do(engine, jsonRequest(http.MethodPost, "/api/v1/samples", `{"track_name":"song","stem_name":"vocals","start":10,"end":15}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sample struct {
		ID       uint64 `json:"id"`
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sample))
	assert.Equal(t, "song - vocals (10.00s-15.00s).wav", sample.Filename)

	w, _ = do(engine, httptest.NewRequest(http.MethodGet, sample.URL, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vocals", w.Body.String())

	w, _ = do(engine, jsonRequest(http.MethodPost, "/api/v1/loops", `{"source_type":"stem","track_name":"song","stem_name":"vocals","start":0,"end":5,"loop_count":1}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(engine, jsonRequest(http.MethodPost, "/api/v1/loops", `{"source_type":"sample","sample_id":1,"loop_count":3}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `x3.wav`)

	w, _ = do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/samples/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/samples/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(engine, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/reconcile", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"tracks_created":1`)

	w, env = do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/tracks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"name":"song"`)

	w, _ = do(engine, httptest.NewRequest(http.MethodDelete, "/api/v1/samples/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(engine, httptest.NewRequest(http.MethodDelete, "/api/v1/samples/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndWorkers(t *testing.T) {
	engine, _ := newTestEngine(t)

	w, _ := do(engine, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w, env := do(engine, httptest.NewRequest(http.MethodGet, "/api/v1/workers", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"capacity":8`)
}
