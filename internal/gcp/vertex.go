package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"

	"github.com/saad688/pdftoword/internal/models"
)

// VertexExtractor sends pages to Gemini on Vertex AI. Each page is staged to
// a GCS bucket because Vertex reads file parts by gs:// URI; the staged
// object is removed once the call returns.
type VertexExtractor struct {
	client        *genai.Client
	staging       *storage.BucketHandle
	stagingBucket string

	mu     sync.Mutex
	models map[string]*genai.GenerativeModel
}

// NewVertexExtractor creates a Vertex AI client for projectID/region that
// stages pages in stagingBucket.
func NewVertexExtractor(ctx context.Context, projectID, region string, storageClient *storage.Client, stagingBucket string) (*VertexExtractor, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexExtractor: projectID and region cannot be empty")
	}
	if stagingBucket == "" {
		return nil, fmt.Errorf("NewVertexExtractor: staging bucket cannot be empty")
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexExtractor{
		client:        client,
		staging:       storageClient.Bucket(stagingBucket),
		stagingBucket: stagingBucket,
		models:        make(map[string]*genai.GenerativeModel),
	}, nil
}

// model returns the configured model for name, creating it on first use.
func (e *VertexExtractor) model(name string) *genai.GenerativeModel {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.models[name]; ok {
		return m
	}
	m := e.client.GenerativeModel(name)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractionSystemPrompt)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	e.models[name] = m
	return m
}

func (e *VertexExtractor) ExtractPage(ctx context.Context, req models.PageRequest) (*models.Extraction, error) {
	logCtx := slog.With("documentId", req.DocumentID, "page", req.PageNumber, "model", req.Model)

	objectName := fmt.Sprintf("staging/%s/%05d.pdf", req.DocumentID, req.PageNumber)
	if err := UploadFile(ctx, e.staging, req.Path, objectName); err != nil {
		if IsPermissionError(err) {
			return nil, fmt.Errorf("%w: failed to stage page in gs://%s: %w", ErrExtractorSetup, e.stagingBucket, err)
		}
		return nil, fmt.Errorf("failed to stage page: %w", err)
	}
	defer DeleteObject(e.staging, objectName)

	filePart := genai.FileData{
		MIMEType: "application/pdf",
		FileURI:  fmt.Sprintf("gs://%s/%s", e.stagingBucket, objectName),
	}
	resp, err := e.model(req.Model).GenerateContent(ctx, filePart, genai.Text(ExtractionUserPrompt))
	if err != nil {
		logCtx.Error("Vertex AI call failed.", "error", err)
		if IsPermissionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrExtractorSetup, err)
		}
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	out := &models.Extraction{Text: vertexText(resp)}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func (e *VertexExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
