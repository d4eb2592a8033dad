package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/adapters/driven/memory"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driving"
)

// stubSigner is a LinkSigner that encodes the grant in the token itself
type stubSigner struct {
	verifyErr error
}

func (s *stubSigner) Sign(jobID string, format domain.ExportFormat, ttl time.Duration) (string, time.Time, error) {
	return jobID + "|" + string(format), time.Now().Add(ttl), nil
}

func (s *stubSigner) Verify(token string) (string, domain.ExportFormat, error) {
	if s.verifyErr != nil {
		return "", "", s.verifyErr
	}
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 {
		return "", "", domain.ErrTokenInvalid
	}
	return parts[0], domain.ExportFormat(parts[1]), nil
}

// testDOCX builds a minimal Office Open XML document, which is a ZIP container
func testDOCX(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"></w:document>`},
	} {
		w, err := zw.Create(entry.name)
		if err != nil {
			t.Fatalf("create %s: %v", entry.name, err)
		}
		if _, err := w.Write([]byte(entry.body)); err != nil {
			t.Fatalf("write %s: %v", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

type jobServiceFixture struct {
	jobs      *memory.JobStore
	artifacts *mocks.MockArtifactStore
	queue     *mocks.MockTaskQueue
	signer    *stubSigner
	svc       driving.JobService
}

func newJobServiceFixture() *jobServiceFixture {
	f := &jobServiceFixture{
		jobs:      memory.NewJobStore(),
		artifacts: mocks.NewMockArtifactStore(),
		queue:     mocks.NewMockTaskQueue(),
		signer:    &stubSigner{},
	}
	f.svc = NewJobService(JobServiceConfig{
		Jobs:          f.jobs,
		Artifacts:     f.artifacts,
		TaskQueue:     f.queue,
		Signer:        f.signer,
		MaxUploadSize: 1 << 20,
	})
	return f
}

// completedJob stores a completed job with both exports
func (f *jobServiceFixture) completedJob(t *testing.T) *domain.Job {
	t.Helper()
	ctx := context.Background()
	job := domain.NewJob([]string{"a.png"}, nil)
	job.MarkCompleted()
	if err := f.jobs.Put(ctx, job); err != nil {
		t.Fatalf("put job: %v", err)
	}

	result := &domain.JobResult{
		JobID:     job.ID,
		Invoices:  []*domain.Invoice{domain.NewPlaceholderInvoice("a.png")},
		Reports:   []domain.InvoiceReport{{Filename: "a.png", Report: domain.NewValidationReport()}},
		Anomalies: []domain.FlaggedInvoice{{Invoice: domain.NewPlaceholderInvoice("a.png"), Flags: []string{"Future date"}}},
		Artifacts: map[domain.ExportFormat]string{},
	}
	for _, format := range exportFormats {
		key := ArtifactKey(job.ID, format)
		_ = f.artifacts.Put(ctx, key, []byte("data-"+string(format)), format.ContentType())
		result.Artifacts[format] = key
	}
	if err := f.jobs.PutResult(ctx, result); err != nil {
		t.Fatalf("put result: %v", err)
	}
	return job
}

func TestJobService_Submit(t *testing.T) {
	f := newJobServiceFixture()
	projectID := int64(42)

	job, err := f.svc.Submit(context.Background(), driving.SubmitRequest{
		Files: []domain.SourceFile{
			{Filename: "scan.png", ContentType: "image/png", Data: testPNG(t)},
			{Filename: "../../etc/scan.png", ContentType: "image/png", Data: testPNG(t)},
		},
		ProjectID: &projectID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != domain.JobStatusQueued || job.Message != domain.MessageQueued {
		t.Errorf("expected queued job, got %s %q", job.Status, job.Message)
	}
	if job.ProjectID == nil || *job.ProjectID != 42 {
		t.Errorf("expected project id 42, got %v", job.ProjectID)
	}
	if len(job.Files) != 2 || job.Files[0] != "scan.png" || job.Files[1] != "2_scan.png" {
		t.Errorf("unexpected file names %v", job.Files)
	}

	if _, err := f.jobs.Get(context.Background(), job.ID); err != nil {
		t.Errorf("expected stored job: %v", err)
	}
	for _, name := range job.Files {
		if _, err := f.artifacts.Get(context.Background(), UploadKey(job.ID, name)); err != nil {
			t.Errorf("expected stored upload %s: %v", name, err)
		}
	}

	tasks := f.queue.Tasks()
	if len(tasks) != 1 || tasks[0].Type != domain.TaskTypeProcessJob || tasks[0].JobID() != job.ID {
		t.Errorf("expected one process_job task for the job, got %+v", tasks)
	}
}

func TestJobService_Submit_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		files   []domain.SourceFile
		wantErr error
	}{
		{
			name:    "no files",
			files:   nil,
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "unsupported type alongside a valid file",
			files: []domain.SourceFile{
				{Filename: "ok.png", Data: nil},
				{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hello there")},
			},
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name: "zip-based office document",
			files: []domain.SourceFile{
				{Filename: "report.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Data: nil},
			},
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name: "too large",
			files: []domain.SourceFile{
				{Filename: "big.pdf", ContentType: "application/pdf", Data: make([]byte, 2<<20)},
			},
			wantErr: domain.ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobServiceFixture()
			if len(tt.files) > 0 && tt.files[0].Filename == "ok.png" {
				tt.files[0].Data = testPNG(t)
			}
			if len(tt.files) > 0 && tt.files[0].Filename == "report.docx" {
				tt.files[0].Data = testDOCX(t)
			}

			_, err := f.svc.Submit(context.Background(), driving.SubmitRequest{Files: tt.files})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if len(f.queue.Tasks()) != 0 {
				t.Error("expected no task for a rejected submission")
			}
			if jobs, _ := f.jobs.ListByStatus(context.Background(), domain.JobStatusQueued); len(jobs) != 0 {
				t.Errorf("expected no job for a rejected submission, got %d", len(jobs))
			}
			if len(f.artifacts.Keys()) != 0 {
				t.Errorf("expected nothing stored, got %v", f.artifacts.Keys())
			}
		})
	}
}

func TestJobService_Submit_EnqueueFailure(t *testing.T) {
	f := newJobServiceFixture()
	f.queue.EnqueueErr = errors.New("queue down")

	_, err := f.svc.Submit(context.Background(), driving.SubmitRequest{
		Files: []domain.SourceFile{{Filename: "a.png", Data: testPNG(t)}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.artifacts.Keys()) != 0 {
		t.Errorf("expected uploads to be removed, got %v", f.artifacts.Keys())
	}
	queued, _ := f.jobs.ListByStatus(context.Background(), domain.JobStatusQueued)
	if len(queued) != 0 {
		t.Errorf("expected no job left behind, got %d", len(queued))
	}
}

func TestJobService_Status(t *testing.T) {
	f := newJobServiceFixture()

	if _, err := f.svc.Status(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	job := f.completedJob(t)
	got, err := f.svc.Status(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.JobStatusCompleted || got.Progress != 100 {
		t.Errorf("unexpected status %s %d", got.Status, got.Progress)
	}
}

func TestJobService_Download(t *testing.T) {
	f := newJobServiceFixture()
	job := f.completedJob(t)

	artifact, err := f.svc.Download(context.Background(), job.ID, domain.ExportExcel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.Filename != job.ID+"_invoices.xlsx" {
		t.Errorf("unexpected filename %q", artifact.Filename)
	}
	if artifact.ContentType != domain.ExportExcel.ContentType() {
		t.Errorf("unexpected content type %q", artifact.ContentType)
	}
	if string(artifact.Data) != "data-excel" {
		t.Errorf("unexpected data %q", artifact.Data)
	}

	if _, err := f.svc.Download(context.Background(), job.ID, "pdf"); !errors.Is(err, domain.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestJobService_ResultsRequireCompletion(t *testing.T) {
	f := newJobServiceFixture()
	job := domain.NewJob([]string{"a.png"}, nil)
	_ = f.jobs.Put(context.Background(), job)
	ctx := context.Background()

	if _, err := f.svc.Download(ctx, job.ID, domain.ExportCSV); !errors.Is(err, domain.ErrJobNotCompleted) {
		t.Errorf("download: expected ErrJobNotCompleted, got %v", err)
	}
	if _, err := f.svc.Validation(ctx, job.ID); !errors.Is(err, domain.ErrJobNotCompleted) {
		t.Errorf("validation: expected ErrJobNotCompleted, got %v", err)
	}
	if _, err := f.svc.Anomalies(ctx, job.ID); !errors.Is(err, domain.ErrJobNotCompleted) {
		t.Errorf("anomalies: expected ErrJobNotCompleted, got %v", err)
	}
	if _, err := f.svc.DownloadLink(ctx, job.ID, domain.ExportCSV); !errors.Is(err, domain.ErrJobNotCompleted) {
		t.Errorf("link: expected ErrJobNotCompleted, got %v", err)
	}
	if _, err := f.svc.Validation(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown job, got %v", err)
	}
}

func TestJobService_ValidationAndAnomalies(t *testing.T) {
	f := newJobServiceFixture()
	job := f.completedJob(t)

	reports, err := f.svc.Validation(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 1 || reports[0].Filename != "a.png" {
		t.Errorf("unexpected reports %+v", reports)
	}

	flagged, err := f.svc.Anomalies(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flagged) != 1 || flagged[0].Flags[0] != "Future date" {
		t.Errorf("unexpected anomalies %+v", flagged)
	}
}

func TestJobService_DownloadLink(t *testing.T) {
	f := newJobServiceFixture()
	job := f.completedJob(t)

	link, err := f.svc.DownloadLink(context.Background(), job.ID, "xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.Token == "" || !link.ExpiresAt.After(time.Now()) {
		t.Errorf("unexpected link %+v", link)
	}

	artifact, err := f.svc.DownloadShared(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(artifact.Data) != "data-excel" {
		t.Errorf("expected the excel export, got %q", artifact.Data)
	}
}

func TestJobService_DownloadShared_InvalidToken(t *testing.T) {
	f := newJobServiceFixture()
	f.signer.verifyErr = domain.ErrTokenExpired

	if _, err := f.svc.DownloadShared(context.Background(), "whatever"); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJobService_DownloadLink_NoSigner(t *testing.T) {
	svc := NewJobService(JobServiceConfig{
		Jobs:      memory.NewJobStore(),
		Artifacts: mocks.NewMockArtifactStore(),
		TaskQueue: mocks.NewMockTaskQueue(),
	})

	if _, err := svc.DownloadLink(context.Background(), "j1", domain.ExportCSV); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestJobService_Cancel(t *testing.T) {
	f := newJobServiceFixture()
	ctx := context.Background()

	queued := domain.NewJob([]string{"a.png"}, nil)
	_ = f.jobs.Put(ctx, queued)

	res, err := f.svc.Cancel(ctx, queued.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Cancelled || res.Message != MessageCancelAccepted {
		t.Errorf("unexpected result %+v", res)
	}
	stored, _ := f.jobs.Get(ctx, queued.ID)
	if stored.Status != domain.JobStatusCancelled || stored.Message != domain.MessageCancelled {
		t.Errorf("expected cancelled job, got %s %q", stored.Status, stored.Message)
	}

	// Cancelling an already cancelled job is refused with its own message
	res, err = f.svc.Cancel(ctx, queued.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cancelled || res.Message != MessageCancelUnknown {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestJobService_Cancel_AfterCompletion(t *testing.T) {
	f := newJobServiceFixture()
	job := f.completedJob(t)

	res, err := f.svc.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cancelled || res.Message != MessageCancelRejected {
		t.Errorf("expected completed job not to be cancelled, got %+v", res)
	}

	stored, _ := f.jobs.Get(context.Background(), job.ID)
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("expected job to stay Completed, got %s", stored.Status)
	}
	if _, err := f.svc.Download(context.Background(), job.ID, domain.ExportCSV); err != nil {
		t.Errorf("expected results to remain available: %v", err)
	}
}

func TestJobService_Cancel_Unknown(t *testing.T) {
	f := newJobServiceFixture()

	if _, err := f.svc.Cancel(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"scan.png", "scan.png"},
		{"dir/scan.png", "scan.png"},
		{`C:\Users\me\scan.png`, "scan.png"},
		{"..", "upload_1"},
		{"", "upload_1"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in, 0); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
