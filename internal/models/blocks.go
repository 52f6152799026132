package models

// BlockKind is the structural type the extraction model assigns to a block.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockTable     BlockKind = "table"
)

// Valid reports whether k is one of the known block kinds.
func (k BlockKind) Valid() bool {
	switch k {
	case BlockParagraph, BlockListItem, BlockTable:
		return true
	}
	return false
}

// Block is one unit of extracted content. Text may contain line breaks and,
// before normalization, ^{...} / _{...} notation.
type Block struct {
	Kind BlockKind `json:"type"`
	Text string    `json:"text"`
}

// PageStatus is the outcome of extracting a single page.
type PageStatus string

const (
	PageSuccess PageStatus = "success"
	PageFailed  PageStatus = "failed"
)

// PageUnit is one page of a split source document, persisted as a
// single-page PDF in the splitter's scoped temp directory.
type PageUnit struct {
	Number int
	Path   string
}

// PageResult is produced by exactly one page worker invocation.
type PageResult struct {
	PageNumber int        `json:"page_number"`
	Blocks     []Block    `json:"blocks"`
	Status     PageStatus `json:"status"`
	Reason     string     `json:"reason,omitempty"`

	// SetupFailure marks failures of the extraction backend itself
	// (credentials, staging bucket) rather than of this page.
	SetupFailure bool `json:"-"`
}

// Page is the ordered block group of one page in a StructuredDocument.
type Page struct {
	PageNumber int     `json:"page_number"`
	Blocks     []Block `json:"blocks"`
}

// StructuredDocument is the cached intermediate representation of a whole
// document. len(Pages) always equals TotalPages.
type StructuredDocument struct {
	TotalPages  int    `json:"total_pages"`
	Pages       []Page `json:"pages"`
	ContentHash string `json:"content_hash,omitempty"`
	FailedPages []int  `json:"failed_pages,omitempty"`
}

// HasFailures reports whether any page of the document carries a diagnostic
// placeholder instead of extracted content.
func (d *StructuredDocument) HasFailures() bool {
	return d != nil && len(d.FailedPages) > 0
}
