package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"school-admin-core/internal/batch"
	"school-admin-core/internal/config"
	"school-admin-core/internal/db"
	"school-admin-core/internal/model"
	"school-admin-core/internal/progression"
	"school-admin-core/internal/results"
	"school-admin-core/internal/schoolapi"
	"school-admin-core/internal/schoolapi/schoolapitest"
)

type memRepo struct {
	mu     sync.Mutex
	events []model.ProgressionEvent
	runs   map[string]model.BatchRun
}

func (m *memRepo) RecordProgression(_ context.Context, e model.ProgressionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRepo) ListProgression(_ context.Context, _ int) ([]model.ProgressionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ProgressionEvent(nil), m.events...), nil
}

func (m *memRepo) CreateBatchRun(_ context.Context, run model.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memRepo) CompleteBatchRun(_ context.Context, run model.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memRepo) GetBatchRun(_ context.Context, id string) (*model.BatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, db.ErrBatchRunNotFound
	}
	return &run, nil
}

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *memStorage) Upload(_ context.Context, key string, data io.ReadSeeker) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

type memQueue struct {
	jobs []model.SheetJob
}

func (q *memQueue) EnqueueSheetJob(_ context.Context, job model.SheetJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Pending(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

type testEnv struct {
	router  *gin.Engine
	server  *schoolapitest.Server
	repo    *memRepo
	storage *memStorage
	queue   *memQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := schoolapitest.New(t)
	client := server.Client()
	repo := &memRepo{runs: map[string]model.BatchRun{}}
	resultSvc := results.NewService(client, validator.New(), zerolog.Nop())

	env := &testEnv{
		router:  gin.New(),
		server:  server,
		repo:    repo,
		storage: &memStorage{objects: map[string][]byte{}},
		queue:   &memQueue{},
	}

	cfg := &config.Config{}
	cfg.App.Name = "school-admin-core"
	handler := NewHandler(cfg, Services{
		Sessions: progression.NewManager(client, repo, zerolog.Nop()),
		Results:  resultSvc,
		Batches:  batch.NewCoordinator(client, resultSvc, 1, zerolog.Nop()),
		Runs:     repo,
		Storage:  env.storage,
		Queue:    env.queue,
	})
	SetupRoutes(env.router, handler)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
	require.EqualValues(t, 0, body["queue_depth"])

	env.queue.jobs = append(env.queue.jobs, model.SheetJob{RunID: "run-1"}, model.SheetJob{RunID: "run-2"})
	_, body = env.do(t, http.MethodGet, "/health", nil)
	require.EqualValues(t, 2, body["queue_depth"])

	rec, _ = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentSessionNotProvisioned(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/session/current", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, setupInstruction, body["action"])
}

func TestProgressionThroughYear(t *testing.T) {
	env := newTestEnv(t)
	env.server.AddSession("2024/2025", 1, true)

	rec, body := env.do(t, http.MethodPost, "/api/v1/session/advance-term", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Second", body["term"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/session/advance-term", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Third", body["term"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/session/advance-term", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/session/migrate", map[string]interface{}{"confirm": false})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/session/migrate", map[string]interface{}{"confirm": true})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	migrate := map[string]interface{}{"confirm": true, "target_label": "2025/2026"}
	rec, body = env.do(t, http.MethodPost, "/api/v1/session/migrate", migrate)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2025/2026", body["label"])
	require.Equal(t, "First", body["term"])
	require.Equal(t, 1, env.server.ActiveCount())

	rec, body = env.do(t, http.MethodPost, "/api/v1/session/migrate", migrate)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2025/2026", body["label"])
	require.Len(t, env.server.Sessions(), 2)

	rec, body = env.do(t, http.MethodGet, "/api/v1/session/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["events"], 3)
}

func TestUpdateSessionDates(t *testing.T) {
	env := newTestEnv(t)
	id := env.server.AddSession("2024/2025", 1, true)
	path := fmt.Sprintf("/api/v1/session/%d/dates", id)

	rec, body := env.do(t, http.MethodPut, path, map[string]interface{}{"term_ends_on": "2024-12-13"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])

	rec, _ = env.do(t, http.MethodPut, path, map[string]interface{}{"term_ends_on": "13/12/2024"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/session/abc/dates", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateScores(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/grading/evaluate?first_ca=8&second_ca=7&third_ca=9&exam=55", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 79, body["total"])
	require.Equal(t, "A", body["grade"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/grading/evaluate?first_ca=15&exam=90", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 80, body["total"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/grading/evaluate?first_ca=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitResult(t *testing.T) {
	env := newTestEnv(t)
	env.server.RejectUINs["STU009"] = "Student is not enrolled in MTH"

	valid := map[string]interface{}{
		"student_id": "1", "student_uin": "STU001", "subject_code": "MTH",
		"term": "First", "session": "2024/2025",
		"first_ca": 8, "second_ca": 7, "third_ca": 9, "exam": 55,
	}
	rec, body := env.do(t, http.MethodPost, "/api/v1/results", valid)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "A", body["grade"])
	require.NotEmpty(t, body["id"])

	missing := map[string]interface{}{"student_id": "1", "term": "First", "session": "2024/2025"}
	rec, _ = env.do(t, http.MethodPost, "/api/v1/results", missing)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rejected := map[string]interface{}{
		"student_id": "9", "student_uin": "STU009", "subject_code": "MTH",
		"term": "First", "session": "2024/2025", "exam": 40,
	}
	rec, body = env.do(t, http.MethodPost, "/api/v1/results", rejected)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "Student is not enrolled in MTH", body["error"])

	rec, body = env.do(t, http.MethodGet, "/api/v1/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["results"], 1)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/results/1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, body = env.do(t, http.MethodDelete, "/api/v1/results/1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Result not found", body["error"])
}

func TestSubmitBatchByClass(t *testing.T) {
	env := newTestEnv(t)
	env.server.Classes["Grade 10A"] = []schoolapi.Student{
		{ID: "1", UIN: "STU001", FullName: "Ada Obi"},
		{ID: "2", UIN: "STU002", FullName: "Tunde Bello"},
		{ID: "3", UIN: "STU003", FullName: "Chi Eze"},
	}
	env.server.RejectUINs["STU002"] = "Duplicate result"

	rec, body := env.do(t, http.MethodPost, "/api/v1/batches", map[string]interface{}{
		"subject_code": "MTH", "term": "First", "session": "2024/2025", "class_name": "Grade 10A",
		"entries": []map[string]interface{}{
			{"uin": "STU001", "first_ca": 8, "second_ca": 7, "third_ca": 9, "exam": 55},
			{"uin": "STU002", "exam": 40},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "PARTIAL", body["status"])
	summary := body["summary"].(map[string]interface{})
	require.EqualValues(t, 1, summary["succeeded"])
	require.EqualValues(t, 1, summary["failed"])
	require.EqualValues(t, 1, summary["skipped"])

	runID := body["run_id"].(string)
	rec, body = env.do(t, http.MethodGet, "/api/v1/batches/"+runID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "INLINE", body["source"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/batches", map[string]interface{}{
		"subject_code": "MTH", "term": "First", "session": "2024/2025", "class_name": "Grade 10A",
		"entries": []map[string]interface{}{{"uin": "NOPE", "exam": 40}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/batches", map[string]interface{}{
		"subject_code": "MTH", "term": "First", "session": "2024/2025", "class_name": "Grade 10A",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/batches/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadSheetQueuesJob(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("subject_code", "MTH"))
	require.NoError(t, mw.WriteField("term", "2"))
	require.NoError(t, mw.WriteField("session", "2024/2025"))
	part, err := mw.CreateFormFile("file", "scores.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("sheet-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches/sheet", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, env.queue.jobs, 1)
	job := env.queue.jobs[0]
	require.Equal(t, model.TermSecond, job.Term)
	require.Equal(t, []byte("sheet-bytes"), env.storage.objects[job.S3Path])

	run, err := env.repo.GetBatchRun(context.Background(), job.RunID)
	require.NoError(t, err)
	require.Equal(t, model.BatchRunQueued, run.Status)
	require.Equal(t, model.BatchSourceSheet, run.Source)
}

func TestUploadSheetRequiresTarget(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("term", "First"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches/sheet", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, env.queue.jobs)
}

func TestUpdateSessionIdentity(t *testing.T) {
	env := newTestEnv(t)
	id := env.server.AddSession("2024/2025", 1, true)
	path := fmt.Sprintf("/api/v1/session/%d", id)

	rec, body := env.do(t, http.MethodPut, path, map[string]interface{}{"label": "2024/2025", "term": "Second"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Second", body["term"])

	rec, _ = env.do(t, http.MethodPut, path, map[string]interface{}{"label": "2024/2026", "term": "Second"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, path, map[string]interface{}{"label": "2024/2025", "term": "Fourth"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
