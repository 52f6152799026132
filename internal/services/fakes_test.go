package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/saad688/pdftoword/internal/models"
)

// fakeExtractor answers every page with one paragraph unless respond is set.
// When hold is set each call reports its page on started and then waits for
// hold to close or ctx to end.
type fakeExtractor struct {
	mu      sync.Mutex
	calls   []models.PageRequest
	respond func(req models.PageRequest) (*models.Extraction, error)

	started chan int
	hold    chan struct{}
}

func (f *fakeExtractor) ExtractPage(ctx context.Context, req models.PageRequest) (*models.Extraction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- req.PageNumber
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.respond != nil {
		return f.respond(req)
	}
	return pageJSON(req.PageNumber), nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func pageJSON(n int) *models.Extraction {
	return &models.Extraction{
		Text:         fmt.Sprintf(`{"blocks":[{"type":"paragraph","text":"Page %d x^{2}"}]}`, n),
		InputTokens:  1000,
		OutputTokens: 200,
	}
}

// fakeSplitter produces pages page units backed by empty files.
type fakeSplitter struct {
	pages int
	err   error

	mu       sync.Mutex
	released []string
}

func (s *fakeSplitter) Split(_ context.Context, _ []byte, jobID string) (*SplitResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	dir, err := os.MkdirTemp("", "fake-split-*")
	if err != nil {
		return nil, err
	}
	res := &SplitResult{Dir: dir}
	for i := 1; i <= s.pages; i++ {
		p := filepath.Join(dir, fmt.Sprintf("page_%d.pdf", i))
		if err := os.WriteFile(p, []byte("%PDF-1.4"), 0o600); err != nil {
			return nil, err
		}
		res.Pages = append(res.Pages, models.PageUnit{Number: i, Path: p})
	}
	s.mu.Lock()
	s.released = append(s.released, dir)
	s.mu.Unlock()
	return res, nil
}

type gateFunc func(ctx context.Context) error

func (g gateFunc) Acquire(ctx context.Context) error { return g(ctx) }

func openGate() Gate { return gateFunc(func(context.Context) error { return nil }) }
