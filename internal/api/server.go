// Package api exposes the converter over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/saad688/pdftoword/internal/export"
	"github.com/saad688/pdftoword/internal/jobs"
	"github.com/saad688/pdftoword/internal/models"
	"github.com/saad688/pdftoword/internal/ratelimit"
	"github.com/saad688/pdftoword/internal/services"
)

const (
	// multipart overhead allowed on top of the document size limit
	formOverhead = 1 << 20
	// most files accepted by one batch upload
	maxBatchFiles = 20
	maxTextBytes  = 10 << 20
)

// Server routes converter requests.
type Server struct {
	converter      *services.Converter
	maxUploadBytes int64
	mux            *http.ServeMux
}

func NewServer(converter *services.Converter, maxUploadBytes int64) *Server {
	s := &Server{
		converter:      converter,
		maxUploadBytes: maxUploadBytes,
		mux:            http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("POST /api/upload-batch", s.handleUploadBatch)
	s.mux.HandleFunc("GET /api/files", s.handleListJobs)
	s.mux.HandleFunc("GET /api/files/{id}", s.handleStatus)
	s.mux.HandleFunc("DELETE /api/files/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /api/files/{id}/result", s.handleResult)
	s.mux.HandleFunc("PUT /api/files/{id}/text", s.handleUpdateText)
	s.mux.HandleFunc("POST /api/files/{id}/save", s.handleSaveText)
	s.mux.HandleFunc("GET /api/files/{id}/pdf", s.handleSourcePDF)
	s.mux.HandleFunc("GET /api/files/{id}/download", s.handleDownload)
	s.mux.HandleFunc("GET /api/files/{id}/export/{format}", s.handleExport)
	s.mux.HandleFunc("GET /api/usage", s.handleUsage)
	s.mux.HandleFunc("GET /api/modes", s.handleModes)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response.", "error", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, models.ErrorResponse{Error: message})
}

// HTTPStatus maps converter errors to response codes.
func HTTPStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrInvalidDocument),
		errors.Is(err, ratelimit.ErrUnknownTier),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrDocumentTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrJobNotReady):
		return http.StatusConflict
	case errors.Is(err, ratelimit.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrQueueFull), errors.Is(err, services.ErrPoolClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorFrom(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed.", "error", err)
		errorResponse(w, status, "internal server error")
		return
	}
	errorResponse(w, status, err.Error())
}
