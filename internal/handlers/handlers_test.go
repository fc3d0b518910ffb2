package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

type fakeBatchService struct {
	got   services.SubmitBatchInput
	batch *models.BatchJob
	err   error
}

func (f *fakeBatchService) Submit(_ context.Context, in services.SubmitBatchInput) (*models.BatchJob, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type fakeIndexer struct{ query string }

func (f *fakeIndexer) IndexResume(context.Context, uuid.UUID, services.ScreeningFile, string) error {
	return nil
}

func (f *fakeIndexer) Search(_ context.Context, _ uuid.UUID, query string, _ int) ([]models.SearchHit, error) {
	f.query = query
	return []models.SearchHit{{FileName: "a.pdf", Score: 0.9, Snippet: "Go"}}, nil
}

type testServer struct {
	app     *fiber.App
	jobs    repositories.JobRepository
	batches repositories.BatchRepository
	service *fakeBatchService
	indexer *fakeIndexer
}

func newTestServer(t *testing.T, withIndex bool) *testServer {
	t.Helper()

	s := &testServer{
		jobs:    repositories.NewMemoryJobRepository(),
		batches: repositories.NewMemoryBatchRepository(),
		service: &fakeBatchService{},
		indexer: &fakeIndexer{},
	}

	var indexer services.ResumeIndexer
	if withIndex {
		indexer = s.indexer
	}

	validate := validator.New()
	jobHandler := NewJobHandler(s.jobs, validate)
	batchHandler := NewBatchHandler(s.service, validate, 1024)
	resultHandler := NewResultHandler(s.batches, indexer)

	s.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	s.app.Post("/jobs", jobHandler.HandleCreate)
	s.app.Get("/jobs/:id", jobHandler.HandleGet)
	s.app.Post("/batches", batchHandler.HandleSubmit)
	s.app.Get("/batches/:id", resultHandler.HandleProgress)
	s.app.Get("/batches/:id/report", resultHandler.HandleReport)
	s.app.Get("/batches/:id/report.xlsx", resultHandler.HandleReportXLSX)
	s.app.Get("/batches/:id/search", resultHandler.HandleSearch)

	return s
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

type part struct {
	field, name, body string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files []part) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateAndGetJob(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(
		`{"title":"Backend Engineer","description":"Go, PostgreSQL and Docker required.","owner_email":"hiring@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := s.do(t, req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var job models.Job
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, "Backend Engineer", job.Title)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID.String(), nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateJobValidation(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(
		`{"title":"","description":"too short","owner_email":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := s.do(t, req)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "owneremail failed on email")
}

func TestSubmitBatchOrdersFilesAndAccepts(t *testing.T) {
	s := newTestServer(t, false)
	batchID := uuid.New()
	s.service.batch = &models.BatchJob{ID: batchID, Status: models.BatchCreated, TotalCount: 3}

	jobID := uuid.NewString()
	req := multipartRequest(t, "/batches",
		map[string]string{"job_id": jobID, "user_email": "hiring@example.com"},
		[]part{
			{"resume_10", "ten.pdf", "10"},
			{"resume_2", "two.pdf", "2"},
			{"resumes", "extra.pdf", "x"},
		})

	resp, body := s.do(t, req)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode, string(body))

	var out models.SubmitBatchResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, batchID.String(), out.BatchID)
	assert.Equal(t, "created", out.Status)

	got := s.service.got
	assert.Equal(t, jobID, got.JobID)
	assert.Equal(t, "hiring@example.com", got.RequesterEmail)
	assert.False(t, got.Wait)
	require.Len(t, got.Files, 3)
	assert.Equal(t, "two.pdf", got.Files[0].FileName)
	assert.Equal(t, "ten.pdf", got.Files[1].FileName)
	assert.Equal(t, "extra.pdf", got.Files[2].FileName)
	assert.Equal(t, []byte("2"), got.Files[0].Data)
}

func TestSubmitBatchWaitReturnsReport(t *testing.T) {
	s := newTestServer(t, false)
	s.service.batch = &models.BatchJob{
		ID:             uuid.New(),
		JobTitle:       "Backend Engineer",
		Status:         models.BatchCompleted,
		ProcessedCount: 1,
		AverageScore:   80,
		Results:        []models.MatchResult{{FileName: "a.pdf", MatchScore: 80, Status: models.StatusApproved}},
	}

	req := multipartRequest(t, "/batches?wait=true",
		map[string]string{"job_id": uuid.NewString(), "user_email": "hiring@example.com"},
		[]part{{"resume_0", "a.pdf", "pdf"}})

	resp, body := s.do(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.True(t, s.service.got.Wait)

	var report models.BatchReportResponse
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 1, report.TotalProcessed)
	assert.Equal(t, 80.0, report.AverageScore)
}

func TestSubmitBatchErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{services.ErrNoFiles, fiber.StatusBadRequest},
		{services.ErrMissingJob, fiber.StatusBadRequest},
		{services.ErrMissingIdentity, fiber.StatusBadRequest},
		{services.ErrJobNotFound, fiber.StatusNotFound},
		{services.ErrUnauthorized, fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			s := newTestServer(t, false)
			s.service.err = tc.err

			req := multipartRequest(t, "/batches", map[string]string{}, []part{{"resume_0", "a.pdf", "pdf"}})
			resp, body := s.do(t, req)
			assert.Equal(t, tc.code, resp.StatusCode, string(body))
			assert.Contains(t, string(body), tc.err.Error())
		})
	}
}

func TestSubmitBatchRejectsBadInput(t *testing.T) {
	s := newTestServer(t, false)

	req := multipartRequest(t, "/batches",
		map[string]string{"job_id": uuid.NewString(), "user_email": "not-an-email"},
		[]part{{"resume_0", "a.pdf", "pdf"}})
	resp, _ := s.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = multipartRequest(t, "/batches",
		map[string]string{"job_id": uuid.NewString(), "user_email": "hiring@example.com"},
		[]part{{"resume_0", "big.pdf", strings.Repeat("x", 2048)}})
	resp, body := s.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "too large")

	assert.Empty(t, s.service.got.Files)
}

func seedBatch(t *testing.T, repo repositories.BatchRepository, complete bool) *models.BatchJob {
	t.Helper()
	ctx := context.Background()

	batch := &models.BatchJob{JobID: uuid.New(), JobTitle: "Backend Engineer", TotalCount: 2}
	require.NoError(t, repo.Create(ctx, batch))
	require.NoError(t, repo.Claim(ctx, batch.ID))
	require.NoError(t, repo.AppendResult(ctx, batch.ID, &models.MatchResult{
		Position: 0, FileName: "low.pdf", MatchScore: 40, Status: models.StatusNotAMatch,
	}))
	require.NoError(t, repo.AppendResult(ctx, batch.ID, &models.MatchResult{
		Position: 1, FileName: "high.pdf", MatchScore: 88, Status: models.StatusApproved,
	}))

	if complete {
		require.NoError(t, repo.Complete(ctx, batch.ID, 64, time.Now()))
	}
	return batch
}

func TestProgressAndReport(t *testing.T) {
	s := newTestServer(t, false)
	batch := seedBatch(t, s.batches, false)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String(), nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var progress models.BatchProgressResponse
	require.NoError(t, json.Unmarshal(body, &progress))
	assert.Equal(t, "processing", progress.Status)
	assert.Equal(t, 2, progress.ProcessedCount)
	assert.Equal(t, "low.pdf", progress.Results[0].FileName)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String()+"/report", nil))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	require.NoError(t, s.batches.Complete(context.Background(), batch.ID, 64, time.Now()))

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String()+"/report", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report models.BatchReportResponse
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 2, report.TotalProcessed)
	assert.Equal(t, 64.0, report.AverageScore)
	assert.Equal(t, "high.pdf", report.Results[0].FileName)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+uuid.NewString(), nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestReportWorkbookDownload(t *testing.T) {
	s := newTestServer(t, false)
	batch := seedBatch(t, s.batches, true)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String()+"/report.xlsx", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), batch.ID.String())
	// xlsx files are zip archives.
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))
}

func TestSearch(t *testing.T) {
	disabled := newTestServer(t, false)
	batch := seedBatch(t, disabled.batches, true)
	resp, _ := disabled.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String()+"/search?q=go", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	s := newTestServer(t, true)
	batch = seedBatch(t, s.batches, true)

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String()+"/search", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/batches/"+batch.ID.String()+"/search?q=kafka+streams", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "kafka streams", s.indexer.query)

	var out models.SearchResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Hits, 1)
	assert.Equal(t, "a.pdf", out.Hits[0].FileName)
}
