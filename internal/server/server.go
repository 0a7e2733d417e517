// Package server implements a local stand-in for the scoring backend. It
// serves the same HTTP surface the production backend exposes, backed by
// local disk storage and a deterministic scoring stub, so the client side
// can be developed and tested end to end without the real service.
package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"frameselect/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Service struct {
	storage  *Storage
	analyzer *Analyzer
	jobs     *jobStore
	limiter  *rate.Limiter
}

func NewService(storage *Storage) *Service {
	return &Service{
		storage:  storage,
		analyzer: NewAnalyzer(storage),
		jobs:     newJobStore(),
		// Uploads and exports are heavyweight; everything else is a poll.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (s *Service) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return map[string]bool{"ok": true}, nil }))
	r.Post("/upload", s.rateLimited(RestHandler(s.Upload)))
	r.Post("/analyze/{upload_id}", RestHandler(s.Analyze))
	r.Get("/jobs/{job_id}", RestHandler(s.JobStatus))
	r.Get("/results/{upload_id}", RestHandler(s.Results))
	r.Post("/export/{upload_id}", s.rateLimited(s.Export))
	r.Get("/image/{upload_id}/{image_id}", s.serveImage)
	r.Get("/thumb/{upload_id}/{image_id}", s.serveImage)
}

func (s *Service) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (s *Service) Upload(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(256 << 20); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart request: %v", err)
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "No files provided")
	}

	uploadID := uuid.NewString()
	count, err := s.storage.SaveUpload(uploadID, files)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "Upload failed: %v", err)
	}

	slog.Info("saved upload", "upload_id", uploadID, "count", count)
	return api.UploadResponse{UploadId: uploadID, Count: count}, nil
}

func (s *Service) Analyze(r *http.Request) (any, error) {
	uploadID := chi.URLParam(r, "upload_id")
	if !s.storage.UploadExists(uploadID) {
		return nil, CodedErrorf(http.StatusNotFound, "Upload ID not found")
	}

	jobID := uuid.NewString()
	s.jobs.create(jobID, uploadID)

	go s.runJob(jobID, uploadID)

	return api.AnalyzeResponse{JobId: jobID, UploadId: uploadID, Status: api.JobQueued}, nil
}

func (s *Service) runJob(jobID, uploadID string) {
	s.jobs.setRunning(jobID)

	_, err := s.analyzer.Run(uploadID, func(progress float64) {
		s.jobs.setProgress(jobID, progress)
	})
	if err != nil {
		slog.Error("analysis job failed", "job_id", jobID, "upload_id", uploadID, "error", err)
		s.jobs.setFailed(jobID, err.Error())
		return
	}

	s.jobs.setCompleted(jobID)
	slog.Info("analysis job complete", "job_id", jobID, "upload_id", uploadID)
}

func (s *Service) JobStatus(r *http.Request) (any, error) {
	job, ok := s.jobs.get(chi.URLParam(r, "job_id"))
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "Job not found")
	}
	return job, nil
}

func (s *Service) Results(r *http.Request) (any, error) {
	uploadID := chi.URLParam(r, "upload_id")
	results, err := s.storage.LoadResults(uploadID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, CodedErrorf(http.StatusNotFound, "Results not found. Run analysis first.")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "error loading results: %v", err)
	}
	return results, nil
}

// Export streams a ZIP of the requested images, keeping the request's id
// order as the archive entry order.
func (s *Service) Export(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "upload_id")
	if !s.storage.UploadExists(uploadID) {
		writeDetail(w, http.StatusNotFound, "Upload ID not found")
		return
	}

	var imageIDs []string
	if err := json.NewDecoder(r.Body).Decode(&imageIDs); err != nil {
		writeDetail(w, http.StatusBadRequest, "unable to parse request body")
		return
	}
	if len(imageIDs) == 0 {
		writeDetail(w, http.StatusBadRequest, "No images selected for export")
		return
	}

	available, err := s.storage.ImageFiles(uploadID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "error listing upload")
		return
	}
	availableSet := make(map[string]struct{}, len(available))
	for _, name := range available {
		availableSet[name] = struct{}{}
	}
	var missing []string
	for _, id := range imageIDs {
		if _, ok := availableSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		writeDetail(w, http.StatusBadRequest, "Images not found: "+strings.Join(missing, ", "))
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, id := range imageIDs {
		data, err := os.ReadFile(s.storage.ImagePath(uploadID, id))
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create ZIP: %v", err))
			return
		}
		entry, err := zw.Create(id)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create ZIP: %v", err))
			return
		}
		if _, err := entry.Write(data); err != nil {
			writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create ZIP: %v", err))
			return
		}
	}
	if err := zw.Close(); err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create ZIP: %v", err))
		return
	}

	shortID := uploadID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	filename := fmt.Sprintf("frame_select_export_%s_%d_images.zip", shortID, len(imageIDs))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("error writing export payload", "error", err)
	}
}

func (s *Service) serveImage(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "upload_id")
	imageID := chi.URLParam(r, "image_id")

	path := s.storage.ImagePath(uploadID, imageID)
	if _, err := os.Stat(path); err != nil {
		writeDetail(w, http.StatusNotFound, "Image not found")
		return
	}
	http.ServeFile(w, r, path)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorDetail{Detail: detail}) //nolint:errcheck
}
