package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saad688/pdftoword/internal/export"
	"github.com/saad688/pdftoword/internal/jobs"
	"github.com/saad688/pdftoword/internal/models"
	"github.com/saad688/pdftoword/internal/ratelimit"
	"github.com/saad688/pdftoword/internal/services"
)

type stubSplitter struct{ pages int }

func (s stubSplitter) Split(_ context.Context, _ []byte, _ string) (*services.SplitResult, error) {
	dir, err := os.MkdirTemp("", "api-split-*")
	if err != nil {
		return nil, err
	}
	res := &services.SplitResult{Dir: dir}
	for i := 1; i <= s.pages; i++ {
		res.Pages = append(res.Pages, models.PageUnit{Number: i, Path: filepath.Join(dir, fmt.Sprint(i))})
	}
	return res, nil
}

type stubExtractor struct{}

func (stubExtractor) ExtractPage(_ context.Context, req models.PageRequest) (*models.Extraction, error) {
	return &models.Extraction{
		Text: fmt.Sprintf(`{"blocks":[{"type":"paragraph","text":"Hello from page %d"}]}`, req.PageNumber),
	}, nil
}

func newTestServer(t *testing.T, maxUpload int64) *Server {
	t.Helper()
	limits, err := ratelimit.NewRegistry([]ratelimit.Tier{
		{Name: "fast", Model: "gemini-2.5-flash-lite", RPM: 100, RPD: 100, CostPerPage: 0.001},
		{Name: "accurate", Model: "gemini-2.5-pro", RPM: 100, RPD: 100, CostPerPage: 0.03},
	}, "fast")
	require.NoError(t, err)

	conv, err := services.NewConverter(context.Background(), services.ConverterDeps{
		Splitter:       stubSplitter{pages: 2},
		Extractor:      stubExtractor{},
		Limits:         limits,
		OutputDir:      t.TempDir(),
		QueueSize:      4,
		MaxUploadBytes: maxUpload,
	})
	require.NoError(t, err)
	t.Cleanup(conv.Close)
	return NewServer(conv, maxUpload)
}

func uploadRequest(t *testing.T, name string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func submit(t *testing.T, s *Server) string {
	t.Helper()
	resp := do(s, uploadRequest(t, "memo.pdf", []byte("%PDF-1.7 memo"), map[string]string{"mode": "accurate"}))
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	var out models.SubmitResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "accurate", out.Job.Mode)
	assert.Equal(t, models.JobQueued, out.Job.Status)

	require.Eventually(t, func() bool {
		resp := do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+out.JobID, nil))
		var rec models.JobRecord
		_ = json.Unmarshal(resp.Body.Bytes(), &rec)
		return rec.Status == models.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)
	return out.JobID
}

func TestUploadAndFetchResult(t *testing.T) {
	s := newTestServer(t, 1<<20)
	id := submit(t, s)

	resp := do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/result", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var view models.ResultResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, 2, view.Document.TotalPages)
	assert.Contains(t, view.PreviewText, "Hello from page 2")

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.FormatDOCX.ContentType(), resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), `filename="memo.docx"`)
	assert.Equal(t, "PK", resp.Body.String()[:2])

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/export/markdown", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Hello from page 1")

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/export/rtf", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	var list []models.JobRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, 64)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"not a pdf", uploadRequest(t, "notes.txt", []byte("plain text"), nil), http.StatusBadRequest},
		{"unknown mode", uploadRequest(t, "a.pdf", []byte("%PDF-1.7"), map[string]string{"mode": "turbo"}), http.StatusBadRequest},
		{"bad use_cache", uploadRequest(t, "a.pdf", []byte("%PDF-1.7"), map[string]string{"use_cache": "maybe"}), http.StatusBadRequest},
		{"too large", uploadRequest(t, "a.pdf", append([]byte("%PDF-1.7"), make([]byte, 100)...), nil), http.StatusRequestEntityTooLarge},
		{"no file", httptest.NewRequest(http.MethodPost, "/api/upload", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(s, tt.req)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestUnknownJobAndDelete(t *testing.T) {
	s := newTestServer(t, 1<<20)

	for _, path := range []string{"/api/files/nope", "/api/files/nope/result", "/api/files/nope/download"} {
		resp := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, resp.Code, path)
	}

	id := submit(t, s)
	resp := do(s, httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(s, httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func batchRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadBatch(t *testing.T) {
	s := newTestServer(t, 1<<20)

	resp := do(s, batchRequest(t, map[string][]byte{
		"a.pdf":     []byte("%PDF-1.7 a"),
		"b.pdf":     []byte("%PDF-1.7 b"),
		"notes.txt": []byte("plain text"),
	}))
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	var out models.BatchSubmitResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Len(t, out.FileIDs, 2)
	assert.Equal(t, "Uploaded 2 files", out.Message)

	for _, id := range out.FileIDs {
		require.Eventually(t, func() bool {
			resp := do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id, nil))
			var rec models.JobRecord
			_ = json.Unmarshal(resp.Body.Bytes(), &rec)
			return rec.Status == models.JobCompleted
		}, 5*time.Second, 10*time.Millisecond)
	}

	resp = do(s, batchRequest(t, map[string][]byte{"notes.txt": []byte("plain text")}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(s, batchRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func textRequest(method, path, text string) *http.Request {
	body, _ := json.Marshal(models.TextUpdateRequest{Text: text})
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestEditAndSaveText(t *testing.T) {
	s := newTestServer(t, 1<<20)
	id := submit(t, s)

	edited := "=== Page 1 ===\nHello, edited world\n\n=== Page 2 ===\n- one item\n"
	resp := do(s, textRequest(http.MethodPut, "/api/files/"+id+"/text", edited))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var view models.ResultResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Contains(t, view.PreviewText, "Hello, edited world")
	assert.Equal(t, 14, view.WordCount)

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/export/txt", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "- one item")
	assert.NotContains(t, resp.Body.String(), "Hello from page")

	resp = do(s, textRequest(http.MethodPost, "/api/files/"+id+"/save", "Saved text only"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Document.TotalPages)

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "PK", resp.Body.String()[:2])

	resp = do(s, httptest.NewRequest(http.MethodPut, "/api/files/"+id+"/text", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = do(s, textRequest(http.MethodPut, "/api/files/nope/text", "x"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = do(s, textRequest(http.MethodPost, "/api/files/nope/save", "x"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSourcePDF(t *testing.T) {
	s := newTestServer(t, 1<<20)
	id := submit(t, s)

	resp := do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/pdf", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), `filename="memo.pdf"`)
	assert.Equal(t, "%PDF-1.7 memo", resp.Body.String())

	resp = do(s, httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil))
	require.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/pdf", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUsageModesHealth(t *testing.T) {
	s := newTestServer(t, 1<<20)
	submit(t, s)

	resp := do(s, httptest.NewRequest(http.MethodGet, "/api/usage?mode=accurate", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var usage models.UsageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &usage))
	assert.Equal(t, "accurate", usage.Mode)
	assert.Equal(t, 2, usage.DailyRequestsUsed)

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/usage?mode=turbo", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	var modes []models.ModeInfo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &modes))
	require.Len(t, modes, 2)
	assert.True(t, modes[0].Default)

	resp = do(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", services.ErrInvalidDocument), http.StatusBadRequest},
		{services.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("%w: x", jobs.ErrJobNotFound), http.StatusNotFound},
		{&ratelimit.QuotaExhaustedError{Tier: "fast", Limit: 1}, http.StatusTooManyRequests},
		{fmt.Errorf("%w: job is processing", services.ErrJobNotReady), http.StatusConflict},
		{services.ErrQueueFull, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
