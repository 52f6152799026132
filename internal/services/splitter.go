package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/saad688/pdftoword/internal/models"
)

// ErrInvalidDocument is returned when the source cannot be read as a paged
// document or has no pages.
var ErrInvalidDocument = errors.New("invalid source document")

// SplitResult lists the single-page PDFs of one split. The files live in
// Dir, which the caller must Release once all pages are consumed.
type SplitResult struct {
	Dir   string
	Pages []models.PageUnit
}

// Release removes the split's temp directory.
func (r *SplitResult) Release() error {
	if r == nil || r.Dir == "" {
		return nil
	}
	return os.RemoveAll(r.Dir)
}

// Splitter breaks a source document into page units.
type Splitter interface {
	Split(ctx context.Context, content []byte, jobID string) (*SplitResult, error)
}

// PDFSplitter splits PDFs with pdfcpu in a fresh temp directory per call.
type PDFSplitter struct {
	tempRoot string
}

// NewPDFSplitter creates a splitter whose temp directories are created under
// tempRoot, or the OS default when empty.
func NewPDFSplitter(tempRoot string) *PDFSplitter {
	return &PDFSplitter{tempRoot: tempRoot}
}

var unsafeDirChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (s *PDFSplitter) Split(ctx context.Context, content []byte, jobID string) (result *SplitResult, err error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidDocument)
	}
	logCtx := slog.With("jobId", jobID)

	tempDir, err := os.MkdirTemp(s.tempRoot, "pdf-split-"+unsafeDirChars.ReplaceAllString(jobID, "")+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(tempDir)
		}
	}()

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, content, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write source file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		return nil, fmt.Errorf("%w: failed to validate/optimize PDF: %w", ErrInvalidDocument, err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get page count: %w", ErrInvalidDocument, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidDocument)
	}

	// pdfcpu names split pages <base>_<n>.pdf; a single page is used as is.
	pages := make([]models.PageUnit, 0, pageCount)
	if pageCount == 1 {
		pages = append(pages, models.PageUnit{Number: 1, Path: optimizedPath})
	} else {
		if err := api.SplitFile(optimizedPath, tempDir, 1, nil); err != nil {
			return nil, fmt.Errorf("%w: failed to split PDF: %w", ErrInvalidDocument, err)
		}
		base := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
		for i := 1; i <= pageCount; i++ {
			pagePath := fmt.Sprintf("%s_%d.pdf", base, i)
			if _, err := os.Stat(pagePath); err != nil {
				return nil, fmt.Errorf("split page %d missing: %w", i, err)
			}
			pages = append(pages, models.PageUnit{Number: i, Path: pagePath})
		}
	}

	logCtx.Info("PDF optimized and split locally.", "pageCount", pageCount)
	return &SplitResult{Dir: tempDir, Pages: pages}, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
