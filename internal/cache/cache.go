// Package cache memoizes structured extraction results by the content hash
// of the source document.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/saad688/pdftoword/internal/models"
)

// Outcome classifies a cache lookup.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	// MissOnError is a miss caused by an unreadable or corrupt entry.
	MissOnError
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case MissOnError:
		return "miss_on_error"
	default:
		return "miss"
	}
}

// LookupResult is the result of Store.Load. Document is set only on Hit and
// Err only on MissOnError.
type LookupResult struct {
	Outcome  Outcome
	Document *models.StructuredDocument
	Err      error
}

// Store is a persistence backend for structured documents keyed by digest.
type Store interface {
	Load(ctx context.Context, digest string) LookupResult
	Save(ctx context.Context, digest string, doc *models.StructuredDocument) error
	Count(ctx context.Context) (int, error)
}

// Hash returns the hex-encoded SHA-256 digest of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Cache wraps a Store so that storage faults never reach the caller: errored
// lookups are logged and reported as misses, and failed writes are logged
// and dropped.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New creates a Cache over store. A nil store yields a cache that always misses.
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// Load returns the cached document for digest, if any.
func (c *Cache) Load(ctx context.Context, digest string) (*models.StructuredDocument, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	res := c.store.Load(ctx, digest)
	switch res.Outcome {
	case Hit:
		c.logger.Info("Cache hit.", "fileHash", digest)
		return res.Document, true
	case MissOnError:
		c.logger.Warn("Cache entry unreadable, treating as miss.", "fileHash", digest, "error", res.Err)
	}
	return nil, false
}

// Save stores doc under digest. Documents with failed pages are skipped so a
// transient extraction failure is not memoized.
func (c *Cache) Save(ctx context.Context, digest string, doc *models.StructuredDocument) bool {
	if c == nil || c.store == nil || doc == nil {
		return false
	}
	if doc.HasFailures() {
		c.logger.Info("Skipping cache write for document with failed pages.", "fileHash", digest, "failedPages", doc.FailedPages)
		return false
	}
	if err := c.store.Save(ctx, digest, doc); err != nil {
		c.logger.Warn("Cache write failed, continuing.", "fileHash", digest, "error", err)
		return false
	}
	return true
}

// Count returns the number of cached entries, or 0 when the store cannot be listed.
func (c *Cache) Count(ctx context.Context) int {
	if c == nil || c.store == nil {
		return 0
	}
	n, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Warn("Failed to count cache entries.", "error", err)
		return 0
	}
	return n
}
