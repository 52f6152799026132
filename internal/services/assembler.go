package services

import (
	"fmt"
	"sync"

	"github.com/saad688/pdftoword/internal/models"
)

// Assembler collects page results as workers finish, in any order, and
// builds the ordered document once all pages are in.
type Assembler struct {
	total      int
	onProgress func(done, total int)

	mu      sync.Mutex
	results map[int]models.PageResult
}

// NewAssembler expects pages 1..total. onProgress, if set, is called after
// every Add with the number of distinct pages received.
func NewAssembler(total int, onProgress func(done, total int)) *Assembler {
	return &Assembler{
		total:      total,
		onProgress: onProgress,
		results:    make(map[int]models.PageResult, total),
	}
}

// Add records a page result. Results for pages outside 1..total are ignored
// and a later result for the same page replaces the earlier one.
func (a *Assembler) Add(r models.PageResult) {
	if r.PageNumber < 1 || r.PageNumber > a.total {
		return
	}
	a.mu.Lock()
	a.results[r.PageNumber] = r
	done := len(a.results)
	a.mu.Unlock()

	if a.onProgress != nil {
		a.onProgress(done, a.total)
	}
}

// Build returns a document with exactly total pages in ascending order.
// Failed or missing pages hold a single diagnostic paragraph.
func (a *Assembler) Build(contentHash string) *models.StructuredDocument {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc := &models.StructuredDocument{
		TotalPages:  a.total,
		Pages:       make([]models.Page, 0, a.total),
		ContentHash: contentHash,
	}
	for n := 1; n <= a.total; n++ {
		r, ok := a.results[n]
		if !ok {
			r = models.PageResult{PageNumber: n, Status: models.PageFailed, Reason: "no result received"}
		}
		if r.Status != models.PageSuccess {
			doc.FailedPages = append(doc.FailedPages, n)
			doc.Pages = append(doc.Pages, models.Page{
				PageNumber: n,
				Blocks:     []models.Block{{Kind: models.BlockParagraph, Text: placeholder(n, r.Reason)}},
			})
			continue
		}
		blocks := r.Blocks
		if blocks == nil {
			blocks = []models.Block{}
		}
		doc.Pages = append(doc.Pages, models.Page{PageNumber: n, Blocks: blocks})
	}
	return doc
}

func placeholder(page int, reason string) string {
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("[Page %d could not be extracted: %s]", page, reason)
}
