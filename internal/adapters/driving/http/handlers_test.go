package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driving"
	"github.com/swaggo/swag"
)

// mockJobService implements driving.JobService for testing
type mockJobService struct {
	submitFn         func(ctx context.Context, req driving.SubmitRequest) (*domain.Job, error)
	statusFn         func(ctx context.Context, jobID string) (*domain.Job, error)
	downloadFn       func(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.Artifact, error)
	downloadLinkFn   func(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.DownloadLink, error)
	downloadSharedFn func(ctx context.Context, token string) (*driving.Artifact, error)
	validationFn     func(ctx context.Context, jobID string) ([]domain.InvoiceReport, error)
	anomaliesFn      func(ctx context.Context, jobID string) ([]domain.FlaggedInvoice, error)
	cancelFn         func(ctx context.Context, jobID string) (*driving.CancelResult, error)
}

var _ driving.JobService = (*mockJobService)(nil)

func (m *mockJobService) Submit(ctx context.Context, req driving.SubmitRequest) (*domain.Job, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) Download(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.Artifact, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, jobID, format)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) DownloadLink(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.DownloadLink, error) {
	if m.downloadLinkFn != nil {
		return m.downloadLinkFn(ctx, jobID, format)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) DownloadShared(ctx context.Context, token string) (*driving.Artifact, error) {
	if m.downloadSharedFn != nil {
		return m.downloadSharedFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) Validation(ctx context.Context, jobID string) ([]domain.InvoiceReport, error) {
	if m.validationFn != nil {
		return m.validationFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) Anomalies(ctx context.Context, jobID string) ([]domain.FlaggedInvoice, error) {
	if m.anomaliesFn != nil {
		return m.anomaliesFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockJobService) Cancel(ctx context.Context, jobID string) (*driving.CancelResult, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, jobID)
	}
	return nil, errors.New("not implemented")
}

// mockPinger implements Pinger for testing
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func newTestServer(svc driving.JobService, checks map[string]Pinger) *Server {
	return NewServer(Config{
		Version:       "test",
		CORSOrigins:   []string{"*"},
		MaxUploadSize: 1 << 20,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, svc, checks)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

type uploadPart struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, files []uploadPart, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		_, _ = part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func processingJob() *domain.Job {
	projectID := int64(42)
	job := domain.NewJob([]string{"a.png"}, &projectID)
	job.ID = "job-1"
	job.MarkProcessing()
	job.SetProgress(40, "Processed 2 out of 5 documents")
	return job
}

// Health endpoints

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&mockJobService{}, nil)

	rr := serve(s, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response HealthResponse
	decode(t, rr, &response)
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestVersionHandler(t *testing.T) {
	s := newTestServer(&mockJobService{}, nil)

	rr := serve(s, httptest.NewRequest("GET", "/version", nil))

	var response VersionResponse
	decode(t, rr, &response)
	if response.Version != "test" {
		t.Errorf("expected version 'test', got %s", response.Version)
	}
}

func TestReadyHandler(t *testing.T) {
	s := newTestServer(&mockJobService{}, map[string]Pinger{
		"queue": &mockPinger{},
		"store": &mockPinger{},
		"cache": nil,
	})

	rr := serve(s, httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response ReadyResponse
	decode(t, rr, &response)
	if response.Status != "ready" {
		t.Errorf("expected status 'ready', got %s", response.Status)
	}
	if len(response.Checks) != 2 || response.Checks["queue"] != "ok" {
		t.Errorf("unexpected checks %v", response.Checks)
	}
}

func TestReadyHandler_DependencyDown(t *testing.T) {
	s := newTestServer(&mockJobService{}, map[string]Pinger{
		"queue": &mockPinger{err: errors.New("connection refused")},
		"store": &mockPinger{},
	})

	rr := serve(s, httptest.NewRequest("GET", "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
	var response ReadyResponse
	decode(t, rr, &response)
	if response.Checks["queue"] != "connection refused" {
		t.Errorf("expected queue error, got %q", response.Checks["queue"])
	}
	if response.Checks["store"] != "ok" {
		t.Errorf("expected store ok, got %q", response.Checks["store"])
	}
}

type staticDoc string

func (d staticDoc) ReadDoc() string { return string(d) }

func TestSwaggerDocHandler(t *testing.T) {
	s := newTestServer(&mockJobService{}, nil)

	rr := serve(s, httptest.NewRequest("GET", "/swagger/doc.json", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 before registration, got %d", rr.Code)
	}

	swag.Register(swag.Name, staticDoc(`{"swagger":"2.0"}`))

	rr = serve(s, httptest.NewRequest("GET", "/swagger/doc.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != `{"swagger":"2.0"}` {
		t.Errorf("unexpected doc %s", rr.Body.String())
	}
}

// Upload

func TestHandleUpload_Success(t *testing.T) {
	var got driving.SubmitRequest
	svc := &mockJobService{
		submitFn: func(ctx context.Context, req driving.SubmitRequest) (*domain.Job, error) {
			got = req
			job := domain.NewJob([]string{"a.png", "b.pdf"}, req.ProjectID)
			job.ID = "job-1"
			return job, nil
		},
	}
	s := newTestServer(svc, nil)

	req := multipartRequest(t,
		[]uploadPart{{"a.png", []byte("png-bytes")}, {"b.pdf", []byte("%PDF-1.4")}},
		map[string]string{"project_id": "42"},
	)
	rr := serve(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var response UploadResponse
	decode(t, rr, &response)
	if response.TaskID != "job-1" {
		t.Errorf("expected task id job-1, got %s", response.TaskID)
	}
	if len(got.Files) != 2 || got.Files[0].Filename != "a.png" || string(got.Files[1].Data) != "%PDF-1.4" {
		t.Errorf("unexpected files %+v", got.Files)
	}
	if got.ProjectID == nil || *got.ProjectID != 42 {
		t.Errorf("expected project id 42, got %v", got.ProjectID)
	}
}

func TestHandleUpload_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		files      []uploadPart
		fields     map[string]string
		submitErr  error
		wantStatus int
	}{
		{
			name:       "no files",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad project id",
			files:      []uploadPart{{"a.png", []byte("x")}},
			fields:     map[string]string{"project_id": "abc"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported type",
			files:      []uploadPart{{"notes.txt", []byte("hello")}},
			submitErr:  fmt.Errorf("%w: text/plain", domain.ErrUnsupportedType),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too large per service",
			files:      []uploadPart{{"a.png", []byte("x")}},
			submitErr:  fmt.Errorf("%w: a.png", domain.ErrFileTooLarge),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "too large per form",
			files:      []uploadPart{{"big.png", bytes.Repeat([]byte("x"), 2<<20)}},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "store failure",
			files:      []uploadPart{{"a.png", []byte("x")}},
			submitErr:  errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitted := false
			svc := &mockJobService{
				submitFn: func(ctx context.Context, req driving.SubmitRequest) (*domain.Job, error) {
					submitted = true
					if tt.submitErr != nil {
						return nil, tt.submitErr
					}
					return &domain.Job{ID: "job-1"}, nil
				},
			}
			s := newTestServer(svc, nil)

			rr := serve(s, multipartRequest(t, tt.files, tt.fields))

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.submitErr == nil && submitted {
				t.Error("expected the request to be rejected before submission")
			}
		})
	}
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	s := newTestServer(&mockJobService{}, nil)

	req := httptest.NewRequest("POST", "/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleUpload_RequestBodyBounded(t *testing.T) {
	submitted := false
	svc := &mockJobService{
		submitFn: func(ctx context.Context, req driving.SubmitRequest) (*domain.Job, error) {
			submitted = true
			return &domain.Job{ID: "job-1"}, nil
		},
	}
	s := NewServer(Config{
		MaxUploadSize:  1 << 20,
		MaxRequestSize: 64 << 10,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, svc, nil)

	// every file is under the per-file limit, the body is not
	chunk := bytes.Repeat([]byte("x"), 40<<10)
	files := []uploadPart{{"a.png", chunk}, {"b.png", chunk}, {"c.png", chunk}}
	rr := serve(s, multipartRequest(t, files, nil))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", rr.Code)
	}
	if submitted {
		t.Error("expected the request to be rejected before submission")
	}
}

func TestNewServer_DefaultRequestBound(t *testing.T) {
	s := NewServer(Config{MaxUploadSize: 1 << 20}, &mockJobService{}, nil)
	if s.maxRequestSize != 5<<20 {
		t.Errorf("expected request bound %d, got %d", 5<<20, s.maxRequestSize)
	}
}

// Status

func TestHandleStatus(t *testing.T) {
	svc := &mockJobService{
		statusFn: func(ctx context.Context, jobID string) (*domain.Job, error) {
			if jobID != "job-1" {
				return nil, domain.ErrNotFound
			}
			return processingJob(), nil
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/status/job-1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response TaskStatusResponse
	decode(t, rr, &response)
	if response.TaskID != "job-1" || response.Status.Status != domain.JobStatusProcessing {
		t.Errorf("unexpected response %+v", response)
	}
	if response.Status.Progress != 40 || response.Status.Message != "Processed 2 out of 5 documents" {
		t.Errorf("unexpected progress %+v", response.Status)
	}
	if response.Status.ProjectID == nil || *response.Status.ProjectID != 42 {
		t.Errorf("expected project id 42")
	}

	rr = serve(s, httptest.NewRequest("GET", "/status/unknown", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleCheckTask(t *testing.T) {
	svc := &mockJobService{
		statusFn: func(ctx context.Context, jobID string) (*domain.Job, error) {
			return processingJob(), nil
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/check-task/job-1", nil))

	var response map[string]interface{}
	decode(t, rr, &response)
	if response["status"] != string(domain.JobStatusProcessing) {
		t.Errorf("expected flat status, got %v", response["status"])
	}
	if response["progress"] != float64(40) {
		t.Errorf("expected progress 40, got %v", response["progress"])
	}
}

// Cancel

func TestHandleCancel(t *testing.T) {
	tests := []struct {
		name       string
		result     *driving.CancelResult
		err        error
		wantStatus int
	}{
		{
			name:       "cancelled",
			result:     &driving.CancelResult{Cancelled: true, Message: "Task cancelled successfully"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "already finished",
			result:     &driving.CancelResult{Cancelled: false, Message: "Task already completed or failed, cannot cancel"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown job",
			err:        domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockJobService{
				cancelFn: func(ctx context.Context, jobID string) (*driving.CancelResult, error) {
					return tt.result, tt.err
				},
			}
			s := newTestServer(svc, nil)

			rr := serve(s, httptest.NewRequest("POST", "/cancel/job-1", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.result != nil {
				var response CancelResponse
				decode(t, rr, &response)
				if response.Status != tt.result.Message || response.TaskID != "job-1" {
					t.Errorf("unexpected response %+v", response)
				}
			}
		})
	}
}

func TestHandleCancel_WrongMethod(t *testing.T) {
	s := newTestServer(&mockJobService{}, nil)

	rr := serve(s, httptest.NewRequest("GET", "/cancel/job-1", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

// Download

func TestHandleDownload(t *testing.T) {
	var gotFormat domain.ExportFormat
	svc := &mockJobService{
		downloadFn: func(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.Artifact, error) {
			gotFormat = format
			return &driving.Artifact{
				Filename:    "job-1_invoices.csv",
				ContentType: "text/csv",
				Data:        []byte("Date,Description\n"),
			}, nil
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/download/job-1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotFormat != domain.ExportCSV {
		t.Errorf("expected csv by default, got %s", gotFormat)
	}
	if rr.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("Content-Disposition") != `attachment; filename=job-1_invoices.csv` {
		t.Errorf("unexpected disposition %s", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != "Date,Description\n" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	serve(s, httptest.NewRequest("GET", "/download/job-1?format=excel", nil))
	if gotFormat != domain.ExportExcel {
		t.Errorf("expected excel, got %s", gotFormat)
	}
}

func TestHandleDownload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not completed", domain.ErrJobNotCompleted, http.StatusBadRequest, "Processing not completed"},
		{"bad format", domain.ErrInvalidFormat, http.StatusBadRequest, "invalid format, use csv or excel"},
		{"unknown job", domain.ErrNotFound, http.StatusNotFound, "task not found"},
		{"storage failure", errors.New("bucket unreachable"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockJobService{
				downloadFn: func(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.Artifact, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(svc, nil)

			rr := serve(s, httptest.NewRequest("GET", "/download/job-1?format=pdf", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var response ErrorResponse
			decode(t, rr, &response)
			if response.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, response.Error)
			}
		})
	}
}

func TestHandleDownloadLink(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	svc := &mockJobService{
		downloadLinkFn: func(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.DownloadLink, error) {
			if format != domain.ExportExcel {
				t.Errorf("expected excel, got %s", format)
			}
			return &driving.DownloadLink{Token: "signed.token.value", ExpiresAt: expires}, nil
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/download/job-1/link?format=excel", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response DownloadLinkResponse
	decode(t, rr, &response)
	if response.URL != "/shared/signed.token.value" {
		t.Errorf("unexpected url %s", response.URL)
	}
	if !response.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, response.ExpiresAt)
	}
}

func TestHandleDownloadLink_NotConfigured(t *testing.T) {
	svc := &mockJobService{
		downloadLinkFn: func(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.DownloadLink, error) {
			return nil, fmt.Errorf("%w: share links are not configured", domain.ErrServiceUnavailable)
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/download/job-1/link", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestHandleShared(t *testing.T) {
	svc := &mockJobService{
		downloadSharedFn: func(ctx context.Context, token string) (*driving.Artifact, error) {
			switch token {
			case "good":
				return &driving.Artifact{Filename: "job-1_invoices.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: []byte("PK")}, nil
			case "old":
				return nil, domain.ErrTokenExpired
			default:
				return nil, domain.ErrTokenInvalid
			}
		},
	}
	s := newTestServer(svc, nil)

	tests := []struct {
		token      string
		wantStatus int
	}{
		{"good", http.StatusOK},
		{"old", http.StatusGone},
		{"forged", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rr := serve(s, httptest.NewRequest("GET", "/shared/"+tt.token, nil))
		if rr.Code != tt.wantStatus {
			t.Errorf("token %s: expected status %d, got %d", tt.token, tt.wantStatus, rr.Code)
		}
	}
}

// Results

func TestHandleValidation(t *testing.T) {
	svc := &mockJobService{
		validationFn: func(ctx context.Context, jobID string) ([]domain.InvoiceReport, error) {
			return []domain.InvoiceReport{{
				Filename:      "a.png",
				InvoiceNumber: "INV-1",
				Report:        &domain.ValidationReport{IsValid: true},
			}}, nil
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/validation/job-1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var reports []domain.InvoiceReport
	decode(t, rr, &reports)
	if len(reports) != 1 || reports[0].InvoiceNumber != "INV-1" || !reports[0].Report.IsValid {
		t.Errorf("unexpected reports %+v", reports)
	}
}

func TestHandleAnomalies(t *testing.T) {
	svc := &mockJobService{
		anomaliesFn: func(ctx context.Context, jobID string) ([]domain.FlaggedInvoice, error) {
			if jobID == "pending" {
				return nil, domain.ErrJobNotCompleted
			}
			return []domain.FlaggedInvoice{}, nil
		},
	}
	s := newTestServer(svc, nil)

	rr := serve(s, httptest.NewRequest("GET", "/anomalies/job-1", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}

	rr = serve(s, httptest.NewRequest("GET", "/anomalies/pending", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

// Helpers

func TestFormatParam(t *testing.T) {
	req := httptest.NewRequest("GET", "/download/x", nil)
	if got := formatParam(req); got != domain.ExportCSV {
		t.Errorf("expected csv default, got %s", got)
	}
	req = httptest.NewRequest("GET", "/download/x?format=XLSX", nil)
	if got := formatParam(req); got != "XLSX" {
		t.Errorf("expected raw value to be passed through, got %s", got)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	data := map[string]string{"foo": "bar"}
	writeJSON(rr, http.StatusCreated, data)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var response map[string]string
	decode(t, rr, &response)
	if response["foo"] != "bar" {
		t.Errorf("expected foo 'bar', got %s", response["foo"])
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "invalid input")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}

	var response ErrorResponse
	decode(t, rr, &response)
	if response.Error != "invalid input" {
		t.Errorf("expected error 'invalid input', got %s", response.Error)
	}
}
