package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driving"
	"github.com/swaggo/swag"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to disk
const multipartMemory = 32 << 20

// readyTimeout bounds each dependency check of the readiness endpoint
const readyTimeout = 2 * time.Second

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"task not found"`
}

// HealthResponse represents a simple status response
// @Description Simple status response
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the state of each dependency
// @Description Readiness with per-dependency results
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// UploadResponse is returned when a job is accepted
// @Description Accepted upload
type UploadResponse struct {
	TaskID string `json:"task_id" example:"0b6f3c1e-2f7d-4c55-9d59-1b4f3f0d8a11"`
}

// JobState is the nested status block of a status response
type JobState struct {
	Status    domain.JobStatus `json:"status" example:"Processing"`
	Progress  int              `json:"progress" example:"40"`
	Message   string           `json:"message" example:"Processed 2 out of 5 documents"`
	ProjectID *int64           `json:"project_id,omitempty"`
}

// TaskStatusResponse describes a job
// @Description Job status with nested state
type TaskStatusResponse struct {
	TaskID string   `json:"task_id"`
	Status JobState `json:"status"`
}

// CheckTaskResponse is the flat form of a job status
// @Description Flat job status
type CheckTaskResponse struct {
	TaskID   string           `json:"task_id"`
	Status   domain.JobStatus `json:"status" example:"Completed"`
	Progress int              `json:"progress" example:"100"`
	Message  string           `json:"message" example:"Processing completed"`
}

// CancelResponse reports the outcome of a cancel request
// @Description Cancel outcome
type CancelResponse struct {
	TaskID    string `json:"task_id"`
	Cancelled bool   `json:"cancelled"`
	Status    string `json:"status" example:"Task cancelled successfully"`
}

// DownloadLinkResponse carries a signed share link
// @Description Signed download link
type DownloadLinkResponse struct {
	URL       string    `json:"url" example:"/shared/eyJhbGciOiJIUzI1NiJ9..."`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the queue and store backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse  "A dependency is unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name, p := range s.checks {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := s.checks[name].Ping(ctx)
		cancel()
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current build version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the registered OpenAPI document
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// Job endpoints

// handleUpload godoc
// @Summary      Upload invoices
// @Description  Accepts PDF, JPEG, PNG or ZIP files and queues a processing job. One unsupported file rejects the whole upload.
// @Tags         Jobs
// @Accept       multipart/form-data
// @Produce      json
// @Param        files       formData  file    true   "Invoice files"
// @Param        project_id  formData  int     false  "Optional project correlation id"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse  "No files or unsupported file type"
// @Failure      413  {object}  ErrorResponse  "File too large"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var projectID *int64
	if raw := r.FormValue("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "project_id must be an integer")
			return
		}
		projectID = &id
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]domain.SourceFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > s.maxUploadSize {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large: %s", fh.Filename))
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, s.maxUploadSize+1))
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
			return
		}
		files = append(files, domain.SourceFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	job, err := s.jobService.Submit(r.Context(), driving.SubmitRequest{
		Files:     files,
		ProjectID: projectID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{TaskID: job.ID})
}

// handleStatus godoc
// @Summary      Job status
// @Description  Returns the status, progress and message of a job
// @Tags         Jobs
// @Produce      json
// @Param        task_id  path      string  true  "Job ID"
// @Success      200      {object}  TaskStatusResponse
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Router       /status/{task_id} [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobService.Status(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TaskStatusResponse{
		TaskID: job.ID,
		Status: JobState{
			Status:    job.Status,
			Progress:  job.Progress,
			Message:   job.Message,
			ProjectID: job.ProjectID,
		},
	})
}

// handleCheckTask godoc
// @Summary      Job status (flat)
// @Description  Returns the status of a job as a flat object
// @Tags         Jobs
// @Produce      json
// @Param        task_id  path      string  true  "Job ID"
// @Success      200      {object}  CheckTaskResponse
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Router       /check-task/{task_id} [get]
func (s *Server) handleCheckTask(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobService.Status(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckTaskResponse{
		TaskID:   job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
	})
}

// handleCancel godoc
// @Summary      Cancel a job
// @Description  Requests cooperative cancellation of a queued or running job
// @Tags         Jobs
// @Produce      json
// @Param        task_id  path      string  true  "Job ID"
// @Success      200      {object}  CancelResponse
// @Failure      404      {object}  ErrorResponse   "Job not found"
// @Failure      409      {object}  CancelResponse  "Job already finished"
// @Router       /cancel/{task_id} [post]
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")
	result, err := s.jobService.Cancel(r.Context(), taskID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.Cancelled {
		status = http.StatusConflict
	}
	writeJSON(w, status, CancelResponse{
		TaskID:    taskID,
		Cancelled: result.Cancelled,
		Status:    result.Message,
	})
}

// Result endpoints

// handleDownload godoc
// @Summary      Download export
// @Description  Streams the CSV or Excel export of a completed job
// @Tags         Results
// @Produce      text/csv
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        task_id  path      string  true   "Job ID"
// @Param        format   query     string  false  "csv or excel"  default(csv)
// @Success      200      {file}    file
// @Failure      400      {object}  ErrorResponse  "Not completed or invalid format"
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Router       /download/{task_id} [get]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.jobService.Download(r.Context(), r.PathValue("task_id"), formatParam(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeArtifact(w, artifact)
}

// handleDownloadLink godoc
// @Summary      Create share link
// @Description  Issues a signed, expiring link to a completed job's export
// @Tags         Results
// @Produce      json
// @Param        task_id  path      string  true   "Job ID"
// @Param        format   query     string  false  "csv or excel"  default(csv)
// @Success      200      {object}  DownloadLinkResponse
// @Failure      400      {object}  ErrorResponse  "Not completed or invalid format"
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Failure      503      {object}  ErrorResponse  "Share links not configured"
// @Router       /download/{task_id}/link [get]
func (s *Server) handleDownloadLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.jobService.DownloadLink(r.Context(), r.PathValue("task_id"), formatParam(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DownloadLinkResponse{
		URL:       "/shared/" + url.PathEscape(link.Token),
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
	})
}

// handleShared godoc
// @Summary      Download via share link
// @Description  Streams the export referenced by a signed share token
// @Tags         Results
// @Param        token  path      string  true  "Share token"
// @Success      200    {file}    file
// @Failure      401    {object}  ErrorResponse  "Invalid token"
// @Failure      410    {object}  ErrorResponse  "Expired token"
// @Router       /shared/{token} [get]
func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.jobService.DownloadShared(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeArtifact(w, artifact)
}

// handleValidation godoc
// @Summary      Validation reports
// @Description  Returns the validation report of every invoice in a completed job
// @Tags         Results
// @Produce      json
// @Param        task_id  path      string  true  "Job ID"
// @Success      200      {array}   domain.InvoiceReport
// @Failure      400      {object}  ErrorResponse  "Not completed"
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Router       /validation/{task_id} [get]
func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	reports, err := s.jobService.Validation(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleAnomalies godoc
// @Summary      Flagged invoices
// @Description  Returns the invoices of a completed job that carry anomaly flags
// @Tags         Results
// @Produce      json
// @Param        task_id  path      string  true  "Job ID"
// @Success      200      {array}   domain.FlaggedInvoice
// @Failure      400      {object}  ErrorResponse  "Not completed"
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Router       /anomalies/{task_id} [get]
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	flagged, err := s.jobService.Anomalies(r.Context(), r.PathValue("task_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flagged)
}

// Helper functions

// formatParam reads the export format query value, defaulting to CSV
func formatParam(r *http.Request) domain.ExportFormat {
	if f := r.URL.Query().Get("format"); f != "" {
		return domain.ExportFormat(f)
	}
	return domain.ExportCSV
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, domain.ErrJobNotCompleted):
		writeError(w, http.StatusBadRequest, "Processing not completed")
	case errors.Is(err, domain.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid format, use csv or excel")
	case errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusGone, "link expired")
	case errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid link")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeArtifact(w http.ResponseWriter, a *driving.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
