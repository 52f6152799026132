package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/saad688/pdftoword/internal/gcp"
	"github.com/saad688/pdftoword/internal/models"
)

// GCSStore keeps one JSON object per digest under a prefix of a bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStore returns a store writing to gs://<bucket>/<prefix>/<digest>.json.
func NewGCSStore(bucket *storage.BucketHandle, prefix string) *GCSStore {
	return &GCSStore{bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *GCSStore) objectName(digest string) string {
	if s.prefix == "" {
		return digest + ".json"
	}
	return s.prefix + "/" + digest + ".json"
}

func (s *GCSStore) Load(ctx context.Context, digest string) LookupResult {
	reader, err := s.bucket.Object(s.objectName(digest)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return LookupResult{Outcome: Miss}
	}
	if err != nil {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("failed to open cache object: %w", err)}
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("failed to read cache object: %w", err)}
	}
	var doc models.StructuredDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("failed to decode cache object: %w", err)}
	}
	if len(doc.Pages) != doc.TotalPages {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("cache object has %d pages, want %d", len(doc.Pages), doc.TotalPages)}
	}
	return LookupResult{Outcome: Hit, Document: &doc}
}

// Save writes the object only if it does not exist yet. An existing object
// holds the result for the same bytes, so a failed precondition is success.
func (s *GCSStore) Save(ctx context.Context, digest string, doc *models.StructuredDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	objectName := s.objectName(digest)
	if err := gcp.SaveToGCSAtomically(ctx, s.bucket, objectName, data, "application/json"); err != nil {
		return fmt.Errorf("failed to save cache object %s: %w", objectName, err)
	}
	return nil
}

func (s *GCSStore) Count(ctx context.Context) (int, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}
	it := s.bucket.Objects(ctx, query)
	n := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to list cache objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			n++
		}
	}
	return n, nil
}
