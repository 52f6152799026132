// Package jobs keeps the status and results of submitted conversion jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/saad688/pdftoword/internal/models"
)

var ErrJobNotFound = errors.New("job not found")

// StatusSink receives a copy of every job record change. Calls are made
// outside the tracker lock and their errors are only logged.
type StatusSink interface {
	Put(ctx context.Context, rec models.JobRecord) error
	Delete(ctx context.Context, id string) error
}

// Tracker is an in-memory job registry. It has its own lock and never calls
// into the rate limiter or the pipeline.
type Tracker struct {
	mu      sync.RWMutex
	jobs    map[string]*models.JobRecord
	results map[string]*models.StructuredDocument

	sink    StatusSink
	onPurge func(models.JobRecord)
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSink mirrors every record change to sink.
func WithSink(sink StatusSink) Option {
	return func(t *Tracker) { t.sink = sink }
}

// WithPurgeHook registers fn to run for every record removed by
// PurgeOlderThan or Delete.
func WithPurgeHook(fn func(models.JobRecord)) Option {
	return func(t *Tracker) { t.onPurge = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		jobs:    make(map[string]*models.JobRecord),
		results: make(map[string]*models.StructuredDocument),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create registers a new job in the queued state.
func (t *Tracker) Create(rec models.JobRecord) models.JobRecord {
	now := t.now()
	rec.Status = models.JobQueued
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Message == "" {
		rec.Message = "Queued"
	}

	t.mu.Lock()
	stored := rec
	t.jobs[rec.ID] = &stored
	t.mu.Unlock()

	t.mirror(rec)
	return rec
}

// SetStatus records a status transition. progress is clamped to 0..100.
func (t *Tracker) SetStatus(id string, status models.JobStatus, progress int, message string) error {
	return t.Update(id, func(rec *models.JobRecord) {
		rec.Status = status
		rec.Progress = min(max(progress, 0), 100)
		if message != "" {
			rec.Message = message
		}
	})
}

// Fail marks the job failed with err's message.
func (t *Tracker) Fail(id string, err error) error {
	return t.Update(id, func(rec *models.JobRecord) {
		rec.Status = models.JobFailed
		rec.Message = "Failed"
		rec.Error = err.Error()
	})
}

// Update applies fn to the stored record under the lock.
func (t *Tracker) Update(id string, fn func(rec *models.JobRecord)) error {
	t.mu.Lock()
	rec, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	fn(rec)
	rec.UpdatedAt = t.now()
	snapshot := *rec
	t.mu.Unlock()

	t.mirror(snapshot)
	return nil
}

// GetStatus returns a copy of the job record.
func (t *Tracker) GetStatus(id string) (models.JobRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.jobs[id]
	if !ok {
		return models.JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *rec, nil
}

// SetResult stores the structured document produced by a job.
func (t *Tracker) SetResult(id string, doc *models.StructuredDocument) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	t.results[id] = doc
	return nil
}

// GetResult returns the stored structured document, or ErrJobNotFound when
// the job is unknown or has no result yet.
func (t *Tracker) GetResult(id string) (*models.StructuredDocument, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	doc, ok := t.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: no result for %s", ErrJobNotFound, id)
	}
	return doc, nil
}

// List returns all jobs, newest first.
func (t *Tracker) List() []models.JobRecord {
	t.mu.RLock()
	out := make([]models.JobRecord, 0, len(t.jobs))
	for _, rec := range t.jobs {
		out = append(out, *rec)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a job and its result.
func (t *Tracker) Delete(id string) (models.JobRecord, error) {
	t.mu.Lock()
	rec, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return models.JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	removed := *rec
	delete(t.jobs, id)
	delete(t.results, id)
	t.mu.Unlock()

	t.removed(removed)
	return removed, nil
}

// PurgeOlderThan removes jobs whose last update is more than maxAge ago and
// returns how many were removed.
func (t *Tracker) PurgeOlderThan(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)

	t.mu.Lock()
	var purged []models.JobRecord
	for id, rec := range t.jobs {
		if rec.UpdatedAt.Before(cutoff) {
			purged = append(purged, *rec)
			delete(t.jobs, id)
			delete(t.results, id)
		}
	}
	t.mu.Unlock()

	for _, rec := range purged {
		t.removed(rec)
	}
	return len(purged)
}

// RunJanitor purges expired jobs every interval until ctx is done.
func (t *Tracker) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.PurgeOlderThan(maxAge); n > 0 {
				t.logger.Info("Purged expired jobs.", "count", n, "maxAge", maxAge.String())
			}
		}
	}
}

func (t *Tracker) removed(rec models.JobRecord) {
	if t.onPurge != nil {
		t.onPurge(rec)
	}
	if t.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.sink.Delete(ctx, rec.ID); err != nil {
		t.logger.Warn("Failed to delete mirrored job record.", "jobId", rec.ID, "error", err)
	}
}

func (t *Tracker) mirror(rec models.JobRecord) {
	if t.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.sink.Put(ctx, rec); err != nil {
		t.logger.Warn("Failed to mirror job record.", "jobId", rec.ID, "error", err)
	}
}
