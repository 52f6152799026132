package models

// PageRequest asks an extraction backend for the blocks of one page.
type PageRequest struct {
	DocumentID string
	PageNumber int
	// Path is the single-page PDF on local disk.
	Path  string
	Model string
}

// Extraction is the raw model answer for one page plus its token usage.
type Extraction struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}
