package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/saad688/pdftoword/internal/models"
)

// FileStore keeps one JSON file per digest in a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(digest string) string {
	return filepath.Join(s.dir, digest+".json")
}

func (s *FileStore) Load(_ context.Context, digest string) LookupResult {
	data, err := os.ReadFile(s.path(digest))
	if errors.Is(err, os.ErrNotExist) {
		return LookupResult{Outcome: Miss}
	}
	if err != nil {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("failed to read cache entry: %w", err)}
	}
	var doc models.StructuredDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("failed to decode cache entry: %w", err)}
	}
	if len(doc.Pages) != doc.TotalPages {
		return LookupResult{Outcome: MissOnError, Err: fmt.Errorf("cache entry has %d pages, want %d", len(doc.Pages), doc.TotalPages)}
	}
	return LookupResult{Outcome: Hit, Document: &doc}
}

// Save writes through a temp file and renames it into place.
func (s *FileStore) Save(_ context.Context, digest string, doc *models.StructuredDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, digest+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to finalize cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.path(digest)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move cache entry into place: %w", err)
	}
	return nil
}

func (s *FileStore) Count(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}
