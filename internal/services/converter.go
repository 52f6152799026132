package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saad688/pdftoword/internal/cache"
	"github.com/saad688/pdftoword/internal/docx"
	"github.com/saad688/pdftoword/internal/export"
	"github.com/saad688/pdftoword/internal/gcp"
	"github.com/saad688/pdftoword/internal/jobs"
	"github.com/saad688/pdftoword/internal/models"
	"github.com/saad688/pdftoword/internal/notation"
	"github.com/saad688/pdftoword/internal/ratelimit"
)

var (
	ErrDocumentTooLarge = errors.New("document exceeds the upload size limit")
	ErrJobNotReady      = errors.New("job has not completed")
)

// sourceFile is the name the uploaded PDF is kept under in a job's output
// directory.
const sourceFile = "source.pdf"

// SubmitOptions are per-document choices made by the caller.
type SubmitOptions struct {
	// Mode names a rate limit tier; empty selects the default tier.
	Mode string
	// BypassCache skips both cache lookup and cache write.
	BypassCache bool
}

// ConverterDeps wires a Converter. Splitter, Extractor and Limits are required.
type ConverterDeps struct {
	Splitter  Splitter
	Extractor Extractor
	Limits    *ratelimit.Registry
	Cache     *cache.Cache
	JobSink   jobs.StatusSink
	Meter     *UsageMeter

	OutputDir       string
	DocumentWorkers int
	PageWorkers     int
	QueueSize       int
	MaxUploadBytes  int64

	Logger *slog.Logger
}

// Converter runs the PDF to Word pipeline for any number of documents at
// once. All documents share the rate limiter registry.
type Converter struct {
	splitter  Splitter
	extractor Extractor
	limits    *ratelimit.Registry
	cache     *cache.Cache
	tracker   *jobs.Tracker
	meter     *UsageMeter
	pool      *Pool

	outputDir      string
	pageWorkers    int
	maxUploadBytes int64
	logger         *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewConverter starts the document pool. The pool's workers run with ctx,
// so cancelling it aborts in-flight documents.
func NewConverter(ctx context.Context, deps ConverterDeps) (*Converter, error) {
	if deps.Splitter == nil || deps.Extractor == nil || deps.Limits == nil {
		return nil, fmt.Errorf("splitter, extractor and rate limits are required")
	}
	if deps.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(deps.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	meter := deps.Meter
	if meter == nil {
		meter = NewUsageMeter()
	}

	c := &Converter{
		splitter:       deps.Splitter,
		extractor:      deps.Extractor,
		limits:         deps.Limits,
		cache:          deps.Cache,
		meter:          meter,
		outputDir:      deps.OutputDir,
		pageWorkers:    max(deps.PageWorkers, 1),
		maxUploadBytes: deps.MaxUploadBytes,
		logger:         logger,
		cancels:        make(map[string]context.CancelFunc),
	}
	trackerOpts := []jobs.Option{jobs.WithLogger(logger), jobs.WithPurgeHook(c.removeOutputs)}
	if deps.JobSink != nil {
		trackerOpts = append(trackerOpts, jobs.WithSink(deps.JobSink))
	}
	c.tracker = jobs.NewTracker(trackerOpts...)
	c.pool = NewPool(ctx, max(deps.DocumentWorkers, 1), max(deps.QueueSize, 1), logger)
	return c, nil
}

// Close waits for queued documents to finish.
func (c *Converter) Close() {
	c.pool.Close()
}

func (c *Converter) validate(doc models.SourceDocument, opts SubmitOptions) (ratelimit.Tier, error) {
	if len(doc.Content) == 0 {
		return ratelimit.Tier{}, fmt.Errorf("%w: empty file", ErrInvalidDocument)
	}
	if c.maxUploadBytes > 0 && int64(len(doc.Content)) > c.maxUploadBytes {
		return ratelimit.Tier{}, fmt.Errorf("%w: %d bytes, limit is %d", ErrDocumentTooLarge, len(doc.Content), c.maxUploadBytes)
	}
	head := doc.Content[:min(len(doc.Content), 1024)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return ratelimit.Tier{}, fmt.Errorf("%w: not a PDF file", ErrInvalidDocument)
	}
	limiter, err := c.limits.Limiter(opts.Mode)
	if err != nil {
		return ratelimit.Tier{}, err
	}
	return limiter.Tier(), nil
}

func (c *Converter) newJob(doc models.SourceDocument, tier ratelimit.Tier) models.JobRecord {
	return c.tracker.Create(models.JobRecord{
		ID:       uuid.NewString(),
		Name:     doc.Name,
		Mode:     tier.Name,
		FileSize: len(doc.Content),
	})
}

// track registers the cancel func that Delete uses to stop a running job.
func (c *Converter) track(id string, cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancels[id] = cancel
	c.mu.Unlock()
}

// untrack cancels the job's context and forgets it. It is safe to call
// more than once.
func (c *Converter) untrack(id string) {
	c.mu.Lock()
	cancel, ok := c.cancels[id]
	delete(c.cancels, id)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// Submit queues doc for background conversion and returns its job record.
// The uploaded bytes are kept next to the job's outputs until it is deleted.
func (c *Converter) Submit(doc models.SourceDocument, opts SubmitOptions) (models.JobRecord, error) {
	tier, err := c.validate(doc, opts)
	if err != nil {
		return models.JobRecord{}, err
	}
	rec := c.newJob(doc, tier)
	if err := c.keepSource(rec.ID, doc.Content); err != nil {
		_, _ = c.tracker.Delete(rec.ID)
		return models.JobRecord{}, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	c.track(rec.ID, cancel)
	err = c.pool.Submit(func(ctx context.Context) {
		// Stop on pool shutdown as well as on Delete.
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		defer c.untrack(rec.ID)
		_ = c.run(jobCtx, rec.ID, doc, tier, opts)
	})
	if err != nil {
		c.untrack(rec.ID)
		_, _ = c.tracker.Delete(rec.ID)
		return models.JobRecord{}, err
	}
	c.logger.Info("Document queued.", "jobId", rec.ID, "file", doc.Name, "mode", tier.Name)
	return rec, nil
}

// Convert runs the whole pipeline for doc on the calling goroutine.
func (c *Converter) Convert(ctx context.Context, doc models.SourceDocument, opts SubmitOptions) (models.JobRecord, error) {
	tier, err := c.validate(doc, opts)
	if err != nil {
		return models.JobRecord{}, err
	}
	rec := c.newJob(doc, tier)
	jobCtx, cancel := context.WithCancel(ctx)
	c.track(rec.ID, cancel)
	runErr := c.run(jobCtx, rec.ID, doc, tier, opts)
	c.untrack(rec.ID)
	final, err := c.tracker.GetStatus(rec.ID)
	if err != nil {
		return rec, err
	}
	return final, runErr
}

func (c *Converter) run(ctx context.Context, id string, doc models.SourceDocument, tier ratelimit.Tier, opts SubmitOptions) error {
	logCtx := c.logger.With("jobId", id, "file", doc.Name, "mode", tier.Name)
	if c.deleted(id) {
		return c.abandon(logCtx, id)
	}
	logCtx.Info("Processing document.")
	start := time.Now()

	c.progress(id, 5, "Initializing...")
	hash := cache.Hash(doc.Content)
	_ = c.tracker.Update(id, func(r *models.JobRecord) { r.ContentHash = hash })
	logCtx = logCtx.With("fileHash", hash)

	var structured *models.StructuredDocument
	fromCache := false
	if !opts.BypassCache {
		if cached, ok := c.cache.Load(ctx, hash); ok {
			// Shared cache buckets may hold entries written before normalization,
			// so cached text goes through the same notation pass as fresh pages.
			notation.ApplyToDocument(cached)
			structured, fromCache = cached, true
			c.progress(id, 70, "Using cached result...")
		}
	}

	if structured == nil {
		var err error
		structured, err = c.extract(ctx, logCtx, id, hash, doc.Content, tier)
		if err != nil {
			return c.fail(logCtx, id, err)
		}
		if !opts.BypassCache {
			c.cache.Save(ctx, hash, structured)
		}
	}

	// A job deleted while extracting must not leave a docx behind.
	if c.deleted(id) {
		return c.abandon(logCtx, id)
	}
	_ = c.tracker.Update(id, func(r *models.JobRecord) {
		r.PageCount = structured.TotalPages
		r.FromCache = fromCache
	})

	c.progress(id, 90, "Creating Word document...")
	outputPath, err := c.writeDocx(id, doc.Name, structured)
	if err != nil {
		return c.fail(logCtx, id, err)
	}
	if err := c.tracker.SetResult(id, structured); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			// Deleted between the check above and now; the purge hook
			// already ran, so the docx just written is ours to remove.
			return c.abandon(logCtx, id)
		}
		return c.fail(logCtx, id, err)
	}

	message := "Completed!"
	if n := len(structured.FailedPages); n > 0 {
		message = fmt.Sprintf("Completed with %d of %d pages not extracted.", n, structured.TotalPages)
	}
	_ = c.tracker.Update(id, func(r *models.JobRecord) {
		r.Status = models.JobCompleted
		r.Progress = 100
		r.Message = message
		r.OutputPath = outputPath
	})
	logCtx.Info("Conversion complete.", "pages", structured.TotalPages,
		"failedPages", len(structured.FailedPages), "fromCache", fromCache, "duration", time.Since(start).String())
	return nil
}

// extract splits the document and runs every page through a page worker.
// Pages are dispatched by an errgroup limited to pageWorkers.
func (c *Converter) extract(ctx context.Context, logCtx *slog.Logger, id, hash string, content []byte, tier ratelimit.Tier) (*models.StructuredDocument, error) {
	c.progress(id, 10, "Splitting document...")
	split, err := c.splitter.Split(ctx, content, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := split.Release(); err != nil {
			logCtx.Warn("Failed to remove split pages.", "path", split.Dir, "error", err)
		}
	}()

	total := len(split.Pages)
	_ = c.tracker.Update(id, func(r *models.JobRecord) { r.PageCount = total })

	limiter, err := c.limits.Limiter(tier.Name)
	if err != nil {
		return nil, err
	}
	worker := NewPageWorker(limiter, c.extractor, tier.Model, c.meter, logCtx)
	asm := NewAssembler(total, func(done, total int) {
		c.progress(id, 10+done*70/total, fmt.Sprintf("Processed page %d of %d", done, total))
	})

	var succeeded atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.pageWorkers)
	for _, unit := range split.Pages {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			res := worker.Process(gctx, id, unit)
			asm.Add(res)
			if res.Status == models.PageSuccess {
				succeeded.Add(1)
				return nil
			}
			// A broken backend fails the whole job, but only while no page
			// has come back; after that it is treated as a page failure.
			if res.SetupFailure && succeeded.Load() == 0 {
				return fmt.Errorf("%w: %s", gcp.ErrExtractorSetup, res.Reason)
			}
			return nil
		})
	}
	// Only the first error is kept. Page failures return nil, so this is
	// either a setup failure or nothing.
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := asm.Build(hash)
	if len(doc.FailedPages) > 0 {
		logCtx.Warn("Some pages could not be extracted.", "failedPages", doc.FailedPages)
	}
	return doc, nil
}

// progress moves the job forward; it never lowers the reported progress.
func (c *Converter) progress(id string, pct int, message string) {
	_ = c.tracker.Update(id, func(r *models.JobRecord) {
		r.Status = models.JobProcessing
		if pct > r.Progress {
			r.Progress = pct
		}
		r.Message = message
	})
}

func (c *Converter) fail(logCtx *slog.Logger, id string, err error) error {
	if c.deleted(id) {
		logCtx.Info("Conversion stopped.", "reason", err)
		_ = c.abandon(logCtx, id)
		return err
	}
	logCtx.Error("Conversion failed.", "error", err)
	if uerr := c.tracker.Fail(id, err); uerr != nil {
		logCtx.Error("Failed to record job failure.", "error", uerr)
	}
	return err
}

func (c *Converter) deleted(id string) bool {
	_, err := c.tracker.GetStatus(id)
	return errors.Is(err, jobs.ErrJobNotFound)
}

// abandon drops whatever a deleted job wrote after its purge.
func (c *Converter) abandon(logCtx *slog.Logger, id string) error {
	logCtx.Info("Job deleted, abandoning conversion.")
	if err := os.RemoveAll(c.jobDir(id)); err != nil {
		logCtx.Warn("Failed to remove job outputs.", "error", err)
	}
	return nil
}

func (c *Converter) jobDir(id string) string {
	return filepath.Join(c.outputDir, id)
}

func (c *Converter) writeDocx(id, name string, doc *models.StructuredDocument) (string, error) {
	dir := c.jobDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job output dir: %w", err)
	}
	d := docx.Reconstruct(doc)
	d.Title = baseName(name)
	path := filepath.Join(dir, baseName(name)+".docx")
	if err := d.SaveFile(path); err != nil {
		return "", fmt.Errorf("failed to write docx: %w", err)
	}
	return path, nil
}

func (c *Converter) keepSource(id string, content []byte) error {
	dir := c.jobDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create job output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, sourceFile), content, 0o644); err != nil {
		return fmt.Errorf("failed to keep source document: %w", err)
	}
	return nil
}

func (c *Converter) removeOutputs(rec models.JobRecord) {
	if err := os.RemoveAll(c.jobDir(rec.ID)); err != nil {
		c.logger.Warn("Failed to remove job outputs.", "jobId", rec.ID, "error", err)
	}
}

func baseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(base))
	if base == "" || base == "." {
		return "document"
	}
	return base
}

// Status returns the job's current record.
func (c *Converter) Status(id string) (models.JobRecord, error) {
	return c.tracker.GetStatus(id)
}

// Jobs lists all tracked jobs, newest first.
func (c *Converter) Jobs() []models.JobRecord {
	return c.tracker.List()
}

// Result returns the structured document of a completed job.
func (c *Converter) Result(id string) (*models.StructuredDocument, error) {
	return c.tracker.GetResult(id)
}

// ResultView returns the structured document with its text previews.
func (c *Converter) ResultView(id string) (*models.ResultResponse, error) {
	doc, err := c.tracker.GetResult(id)
	if err != nil {
		return nil, err
	}
	preview := export.PreviewText(doc)
	words, chars, lines := export.Stats(preview)
	return &models.ResultResponse{
		JobID:       id,
		Document:    doc,
		PreviewText: preview,
		Pages:       export.PagesData(doc),
		WordCount:   words,
		CharCount:   chars,
		LineCount:   lines,
	}, nil
}

// Render writes the job's result in the requested format and returns the
// file path. The docx produced by the pipeline is reused.
func (c *Converter) Render(id string, format export.Format) (string, error) {
	rec, err := c.tracker.GetStatus(id)
	if err != nil {
		return "", err
	}
	if format == export.FormatDOCX && rec.OutputPath != "" {
		if _, err := os.Stat(rec.OutputPath); err == nil {
			return rec.OutputPath, nil
		}
	}
	doc, err := c.tracker.GetResult(id)
	if err != nil {
		return "", err
	}

	data, err := export.Render(doc, format, baseName(rec.Name))
	if err != nil {
		return "", err
	}
	dir := c.jobDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job output dir: %w", err)
	}
	path := filepath.Join(dir, baseName(rec.Name)+"."+string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// SourcePath returns the uploaded PDF of a job queued with Submit.
func (c *Converter) SourcePath(id string) (string, error) {
	if _, err := c.tracker.GetStatus(id); err != nil {
		return "", err
	}
	path := filepath.Join(c.jobDir(id), sourceFile)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: source document of %s was not kept", jobs.ErrJobNotFound, id)
	}
	return path, nil
}

// UpdateText replaces a completed job's result with edited preview text.
// The docx is left alone until SaveText.
func (c *Converter) UpdateText(id, text string) (*models.ResultResponse, error) {
	rec, err := c.tracker.GetStatus(id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.JobCompleted {
		return nil, fmt.Errorf("%w: job is %s", ErrJobNotReady, rec.Status)
	}
	doc := export.ParseText(text)
	doc.ContentHash = rec.ContentHash
	if err := c.tracker.SetResult(id, doc); err != nil {
		return nil, err
	}
	return c.ResultView(id)
}

// SaveText applies edited text and rebuilds the job's Word document from it.
func (c *Converter) SaveText(id, text string) (*models.ResultResponse, error) {
	view, err := c.UpdateText(id, text)
	if err != nil {
		return nil, err
	}
	rec, err := c.tracker.GetStatus(id)
	if err != nil {
		return nil, err
	}
	path, err := c.writeDocx(id, rec.Name, view.Document)
	if err != nil {
		return nil, err
	}
	if err := c.tracker.Update(id, func(r *models.JobRecord) { r.OutputPath = path }); err != nil {
		return nil, err
	}
	c.logger.Info("Edited text saved.", "jobId", id, "path", path)
	return view, nil
}

// Delete forgets a job, stops it if it is still running and removes its
// output files.
func (c *Converter) Delete(id string) error {
	if _, err := c.tracker.Delete(id); err != nil {
		return err
	}
	c.untrack(id)
	return nil
}

// Usage reports token spend and the quota headroom of one mode.
func (c *Converter) Usage(ctx context.Context, mode string) (models.UsageResponse, error) {
	limiter, err := c.limits.Limiter(mode)
	if err != nil {
		return models.UsageResponse{}, err
	}
	snap := limiter.Snapshot()
	tokens, cost := c.meter.Totals()
	return models.UsageResponse{
		Mode:                   snap.Tier,
		TotalTokens:            tokens,
		EstimatedCost:          cost,
		DailyRequestsUsed:      snap.DailyUsed,
		DailyRequestsRemaining: snap.DailyRemaining,
		SecondsUntilReset:      int64(snap.UntilReset.Seconds()),
		CachedDocuments:        c.cache.Count(ctx),
	}, nil
}

// AvailableModes lists the selectable modes from cheapest to most accurate.
func (c *Converter) AvailableModes() []models.ModeInfo {
	tiers := c.limits.Tiers()
	out := make([]models.ModeInfo, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, models.ModeInfo{
			Name:        t.Name,
			Model:       t.Model,
			RPM:         t.RPM,
			RPD:         t.RPD,
			CostPerPage: t.CostPerPage,
			Description: t.Description,
			Default:     t.Name == c.limits.Default(),
		})
	}
	return out
}

// RunJanitor purges jobs idle longer than maxAge every interval until ctx
// is done.
func (c *Converter) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	c.tracker.RunJanitor(ctx, interval, maxAge)
}
