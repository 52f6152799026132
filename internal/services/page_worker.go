package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/saad688/pdftoword/internal/gcp"
	"github.com/saad688/pdftoword/internal/models"
	"github.com/saad688/pdftoword/internal/notation"
)

const maxReasonRunes = 200

// Gate admits one outbound request. *ratelimit.Limiter satisfies it.
type Gate interface {
	Acquire(ctx context.Context) error
}

// Extractor performs the remote extraction call for one page.
type Extractor interface {
	ExtractPage(ctx context.Context, req models.PageRequest) (*models.Extraction, error)
}

// PageWorker turns one page unit into exactly one PageResult.
type PageWorker struct {
	gate      Gate
	extractor Extractor
	model     string
	meter     *UsageMeter
	logger    *slog.Logger
}

func NewPageWorker(gate Gate, extractor Extractor, model string, meter *UsageMeter, logger *slog.Logger) *PageWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageWorker{gate: gate, extractor: extractor, model: model, meter: meter, logger: logger}
}

// Process never returns an error: every failure becomes a failed PageResult.
func (w *PageWorker) Process(ctx context.Context, jobID string, unit models.PageUnit) (result models.PageResult) {
	logCtx := w.logger.With("page", unit.Number)

	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Page worker panicked.", "panic", r)
			result = failedPage(unit.Number, fmt.Errorf("internal error: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failedPage(unit.Number, err)
	}
	if err := w.gate.Acquire(ctx); err != nil {
		logCtx.Warn("Rate limiter refused page.", "error", err)
		return failedPage(unit.Number, err)
	}

	extraction, err := w.extractor.ExtractPage(ctx, models.PageRequest{
		DocumentID: jobID,
		PageNumber: unit.Number,
		Path:       unit.Path,
		Model:      w.model,
	})
	if err != nil {
		logCtx.Error("Page extraction failed.", "error", err)
		res := failedPage(unit.Number, err)
		res.SetupFailure = errors.Is(err, gcp.ErrExtractorSetup)
		return res
	}
	if w.meter != nil {
		w.meter.Record(w.model, extraction.InputTokens, extraction.OutputTokens)
	}

	blocks, err := ParsePageResponse(extraction.Text)
	if err != nil {
		logCtx.Error("Failed to parse page response.", "error", err)
		return failedPage(unit.Number, err)
	}
	notation.ApplyToBlocks(blocks)

	logCtx.Info("Page extracted.", "blocks", len(blocks),
		"inputTokens", extraction.InputTokens, "outputTokens", extraction.OutputTokens)
	return models.PageResult{
		PageNumber: unit.Number,
		Blocks:     blocks,
		Status:     models.PageSuccess,
	}
}

func failedPage(number int, err error) models.PageResult {
	return models.PageResult{
		PageNumber: number,
		Blocks:     []models.Block{},
		Status:     models.PageFailed,
		Reason:     truncateReason(err.Error()),
	}
}

func truncateReason(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxReasonRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxReasonRunes-3]) + "..."
}
