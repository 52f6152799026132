package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/saad688/pdftoword/internal/models"
)

// GeminiExtractor sends pages to the Gemini API. Pages are uploaded through
// the File API and deleted after the call.
type GeminiExtractor struct {
	client *gemini.Client

	mu     sync.Mutex
	models map[string]*gemini.GenerativeModel
}

// NewGeminiExtractor creates a Gemini API client authenticated with apiKey.
func NewGeminiExtractor(ctx context.Context, apiKey string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrExtractorSetup)
	}
	client, err := gemini.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiExtractor{
		client: client,
		models: make(map[string]*gemini.GenerativeModel),
	}, nil
}

func (e *GeminiExtractor) model(name string) *gemini.GenerativeModel {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.models[name]; ok {
		return m
	}
	m := e.client.GenerativeModel(name)
	m.SystemInstruction = &gemini.Content{
		Parts: []gemini.Part{gemini.Text(ExtractionSystemPrompt)},
	}
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"
	e.models[name] = m
	return m
}

func (e *GeminiExtractor) ExtractPage(ctx context.Context, req models.PageRequest) (*models.Extraction, error) {
	logCtx := slog.With("documentId", req.DocumentID, "page", req.PageNumber, "model", req.Model)

	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page file: %w", err)
	}
	defer f.Close()

	uploaded, err := e.client.UploadFile(ctx, "", f, &gemini.UploadFileOptions{
		DisplayName: fmt.Sprintf("%s-%s", req.DocumentID, filepath.Base(req.Path)),
		MIMEType:    "application/pdf",
	})
	if err != nil {
		if IsPermissionError(err) {
			return nil, fmt.Errorf("%w: failed to upload page: %w", ErrExtractorSetup, err)
		}
		return nil, fmt.Errorf("failed to upload page: %w", err)
	}
	defer e.deleteFile(uploaded.Name)

	if err := e.waitActive(ctx, uploaded); err != nil {
		return nil, err
	}

	resp, err := e.model(req.Model).GenerateContent(ctx,
		gemini.FileData{MIMEType: uploaded.MIMEType, URI: uploaded.URI},
		gemini.Text(ExtractionUserPrompt),
	)
	if err != nil {
		logCtx.Error("Gemini API call failed.", "error", err)
		if IsPermissionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrExtractorSetup, err)
		}
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	out := &models.Extraction{Text: geminiText(resp)}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// waitActive polls until an uploaded file leaves the processing state.
func (e *GeminiExtractor) waitActive(ctx context.Context, file *gemini.File) error {
	for file.State == gemini.FileStateProcessing {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		var err error
		file, err = e.client.GetFile(ctx, file.Name)
		if err != nil {
			return fmt.Errorf("failed to poll uploaded file: %w", err)
		}
	}
	if file.State == gemini.FileStateFailed {
		return fmt.Errorf("uploaded file %s failed processing", file.Name)
	}
	return nil
}

func (e *GeminiExtractor) deleteFile(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.client.DeleteFile(ctx, name); err != nil {
		slog.Warn("Failed to delete uploaded file.", "file", name, "error", err)
	}
}

func geminiText(resp *gemini.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(gemini.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func (e *GeminiExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
