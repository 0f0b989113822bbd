// Package chi implements the HTTP API: recording intake, job observation,
// artifact retrieval, and hybrid search.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/request"
	healthuc "github.com/GitHub-HackDay/sumview/internal/usecase/health"
	searchuc "github.com/GitHub-HackDay/sumview/internal/usecase/search"
)

// maxUploadBytes bounds a single recording upload.
const maxUploadBytes = 512 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services into chi handlers.
type Server struct {
	pipeline      Pipeline
	search        *searchuc.Service
	recordings    RecordingStore
	uploads       UploadStore
	progress      ProgressSource
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	pipeline Pipeline,
	search *searchuc.Service,
	recordings RecordingStore,
	uploads UploadStore,
	progress ProgressSource,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline:   pipeline,
		search:     search,
		recordings: recordings,
		uploads:    uploads,
		progress:   progress,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, codeJobNotFound),
		sentinelHandler(domain.ErrRecordingNotFound, http.StatusNotFound, codeRecordingNotFound),
		sentinelHandler(domain.ErrInvalidWeights, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrResourceExhausted, http.StatusTooManyRequests, codeResourceExhausted),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts all API handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recordings", s.CreateRecording)
		r.Get("/recordings", s.ListRecordings)
		r.Get("/recordings/{id}", s.GetRecording)
		r.Delete("/recordings/{id}", s.DeleteRecording)

		r.Get("/jobs/{id}", s.GetJob)
		r.Delete("/jobs/{id}", s.CancelJob)
		r.Get("/jobs/{id}/artifacts", s.GetJobArtifacts)
		r.Get("/jobs/{id}/events", s.StreamJobEvents)

		r.Get("/search", s.Search)
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// CreateRecording handles POST /api/v1/recordings. Accepts a multipart
// upload with the recording under "file" and an optional "weights" JSON
// object overriding the stage weight table.
func (s *Server) CreateRecording(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart body: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "file field is required")
		return
	}
	defer file.Close()

	var weights map[string]float64
	if raw := r.FormValue("weights"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &weights); err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "weights must be a JSON object: "+err.Error())
			return
		}
	}

	path, err := s.uploads.SaveUpload(header.Filename, file)
	if err != nil {
		s.handleDomainError(w, fmt.Errorf("save upload: %w", err))
		return
	}

	jobID, err := s.pipeline.StartJob(r.Context(), path, weights)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/jobs/"+jobID)
	writeJSON(w, http.StatusAccepted, jobCreatedResponse{
		JobID:       jobID,
		RecordingID: jobID,
		Filename:    header.Filename,
	})
}

// GetJob handles GET /api/v1/jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	snap, err := s.pipeline.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

// CancelJob handles DELETE /api/v1/jobs/{id}. Cancellation is cooperative;
// the job transitions at its next checkpoint.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Cancel(chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetJobArtifacts handles GET /api/v1/jobs/{id}/artifacts. Partial outputs
// of failed or cancelled jobs are served as-is.
func (s *Server) GetJobArtifacts(w http.ResponseWriter, r *http.Request) {
	rec, err := s.pipeline.Artifacts(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordingToDTO(rec))
}

// ListRecordings handles GET /api/v1/recordings.
func (s *Server) ListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.recordings.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]recordingListItemDTO, len(recs))
	for i, rec := range recs {
		items[i] = recordingToListItemDTO(rec)
	}
	writeJSON(w, http.StatusOK, recordingListResponse{Items: items, Total: len(items)})
}

// GetRecording handles GET /api/v1/recordings/{id}.
func (s *Server) GetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recordings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordingToDTO(rec))
}

// DeleteRecording handles DELETE /api/v1/recordings/{id}.
func (s *Server) DeleteRecording(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.recordings.Get(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.recordings.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be an integer")
			return
		}
		limit = parsed
	}

	req, err := request.New(q.Get("q"), q.Get("recording_id"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	set, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchSetToDTO(set))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrJobNotFound,
		domain.ErrRecordingNotFound,
		domain.ErrInvalidWeights,
		domain.ErrResourceExhausted,
		domain.ErrIndexUnavailable,
		domain.ErrStageTimeout,
		domain.ErrJobCancelled,
		domain.ErrProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
