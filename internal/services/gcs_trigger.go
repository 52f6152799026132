package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/saad688/pdftoword/internal/cache"
	"github.com/saad688/pdftoword/internal/gcp"
	"github.com/saad688/pdftoword/internal/models"
)

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// GCSTrigger converts PDFs as they land in a bucket and writes the .docx to
// the output bucket under the same object path.
type GCSTrigger struct {
	converter     *Converter
	storageClient *storage.Client
	outputBucket  string
	jobStore      *gcp.FirestoreJobStore
	maxBytes      int64
}

// NewGCSTrigger requires OUTPUT_BUCKET to be configured.
func NewGCSTrigger(rt *Runtime) (*GCSTrigger, error) {
	if rt.Config.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	return &GCSTrigger{
		converter:     rt.Converter,
		storageClient: rt.storageClient,
		outputBucket:  rt.Config.OutputBucket,
		jobStore:      rt.jobStore,
		maxBytes:      rt.Config.MaxUploadBytes(),
	}, nil
}

func (t *GCSTrigger) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	content, err := gcp.ReadObject(ctx, t.storageClient.Bucket(e.Bucket), e.Name, t.maxBytes)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := cache.Hash(content)
	logCtx = logCtx.With("fileHash", fileHash)
	// Finalize events can be delivered more than once. A job already
	// recorded for these bytes means the object was handled.
	if t.jobStore != nil {
		existing, err := t.jobStore.FindByHash(ctx, fileHash)
		if err != nil {
			logCtx.Error("Failed to check for duplicate", "error", err)
			return err
		}
		if existing != nil {
			logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing.ID)
			return nil
		}
	}

	rec, err := t.converter.Convert(ctx, models.SourceDocument{Name: path.Base(e.Name), Content: content}, SubmitOptions{})
	if err != nil {
		if errors.Is(err, ErrInvalidDocument) || errors.Is(err, ErrDocumentTooLarge) {
			// Retrying cannot fix the input.
			logCtx.Warn("Rejected source document.", "error", err)
			return nil
		}
		return err
	}
	// The bucket copy is the only output this trigger keeps.
	defer func() {
		if err := os.RemoveAll(filepath.Dir(rec.OutputPath)); err != nil {
			logCtx.Warn("Failed to remove local output.", "error", err)
		}
	}()

	objectName := strings.TrimSuffix(e.Name, path.Ext(e.Name)) + ".docx"
	if err := gcp.UploadFile(ctx, t.storageClient.Bucket(t.outputBucket), rec.OutputPath, objectName); err != nil {
		logCtx.Error("Failed to upload docx.", "error", err)
		return err
	}
	logCtx.Info("Conversion uploaded.", "jobId", rec.ID, "output", fmt.Sprintf("gs://%s/%s", t.outputBucket, objectName))
	return nil
}
