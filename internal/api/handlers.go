package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/saad688/pdftoword/internal/export"
	"github.com/saad688/pdftoword/internal/models"
	"github.com/saad688/pdftoword/internal/services"
)

// parseUpload reads a multipart form of at most limit bytes plus overhead
// and the shared "mode" and "use_cache" fields. It writes the error
// response itself and returns false on failure.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, limit int64) (services.SubmitOptions, bool) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if HTTPStatus(err) == http.StatusRequestEntityTooLarge {
			errorFrom(w, err)
			return services.SubmitOptions{}, false
		}
		errorResponse(w, http.StatusBadRequest, "expected a multipart form")
		return services.SubmitOptions{}, false
	}

	useCache := true
	if raw := r.FormValue("use_cache"); raw != "" {
		var err error
		if useCache, err = strconv.ParseBool(raw); err != nil {
			errorResponse(w, http.StatusBadRequest, "use_cache must be true or false")
			return services.SubmitOptions{}, false
		}
	}
	return services.SubmitOptions{Mode: r.FormValue("mode"), BypassCache: !useCache}, true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleUpload accepts a multipart form with a "file" part and optional
// "mode" and "use_cache" fields, and queues the document.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.parseUpload(w, r, s.maxUploadBytes)
	if !ok {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	rec, err := s.converter.Submit(models.SourceDocument{Name: header.Filename, Content: content}, opts)
	if err != nil {
		errorFrom(w, err)
		return
	}
	jsonResponse(w, http.StatusAccepted, models.SubmitResponse{
		JobID:   rec.ID,
		Message: "File uploaded successfully",
		Job:     rec,
	})
}

// handleUploadBatch queues every "files" part with the same options. Files
// the converter rejects are skipped; the request fails only when none is
// accepted.
func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	limit := int64(0)
	if s.maxUploadBytes > 0 {
		limit = s.maxUploadBytes * maxBatchFiles
	}
	opts, ok := s.parseUpload(w, r, limit)
	if !ok {
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		errorResponse(w, http.StatusBadRequest, "files are required")
		return
	}
	if len(headers) > maxBatchFiles {
		errorResponse(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per batch", maxBatchFiles))
		return
	}

	ids := make([]string, 0, len(headers))
	var lastErr error
	for _, fh := range headers {
		content, err := readPart(fh)
		if err == nil {
			var rec models.JobRecord
			rec, err = s.converter.Submit(models.SourceDocument{Name: fh.Filename, Content: content}, opts)
			if err == nil {
				ids = append(ids, rec.ID)
				continue
			}
		}
		slog.Warn("Skipped file in batch upload.", "file", fh.Filename, "error", err)
		lastErr = err
	}
	if len(ids) == 0 {
		errorFrom(w, lastErr)
		return
	}
	jsonResponse(w, http.StatusAccepted, models.BatchSubmitResponse{
		FileIDs: ids,
		Message: fmt.Sprintf("Uploaded %d files", len(ids)),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.converter.Jobs())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.converter.Status(r.PathValue("id"))
	if err != nil {
		errorFrom(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.converter.Delete(r.PathValue("id")); err != nil {
		errorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// completedJob writes an error response and returns false unless the job
// has finished successfully.
func (s *Server) completedJob(w http.ResponseWriter, id string) (models.JobRecord, bool) {
	rec, err := s.converter.Status(id)
	if err != nil {
		errorFrom(w, err)
		return rec, false
	}
	if rec.Status != models.JobCompleted {
		errorResponse(w, http.StatusConflict, fmt.Sprintf("job is %s", rec.Status))
		return rec, false
	}
	return rec, true
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.completedJob(w, id); !ok {
		return
	}
	view, err := s.converter.ResultView(id)
	if err != nil {
		errorFrom(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.TextUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBytes)).Decode(&req); err != nil {
		if HTTPStatus(err) == http.StatusRequestEntityTooLarge {
			errorFrom(w, err)
			return "", false
		}
		errorResponse(w, http.StatusBadRequest, "expected a JSON body with a text field")
		return "", false
	}
	return req.Text, true
}

// handleUpdateText stores edited text as the job's result.
func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	view, err := s.converter.UpdateText(r.PathValue("id"), text)
	if err != nil {
		errorFrom(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// handleSaveText stores edited text and rebuilds the docx from it.
func (s *Server) handleSaveText(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	view, err := s.converter.SaveText(r.PathValue("id"), text)
	if err != nil {
		errorFrom(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleSourcePDF(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.converter.Status(id)
	if err != nil {
		errorFrom(w, err)
		return
	}
	path, err := s.converter.SourcePath(id)
	if err != nil {
		errorFrom(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(rec.Name)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, r.PathValue("id"), export.FormatDOCX)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		errorFrom(w, err)
		return
	}
	s.serveExport(w, r, r.PathValue("id"), format)
}

func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, id string, format export.Format) {
	if _, ok := s.completedJob(w, id); !ok {
		return
	}
	path, err := s.converter.Render(id, format)
	if err != nil {
		errorFrom(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.converter.Usage(r.Context(), r.URL.Query().Get("mode"))
	if err != nil {
		errorFrom(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, usage)
}

func (s *Server) handleModes(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, s.converter.AvailableModes())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
