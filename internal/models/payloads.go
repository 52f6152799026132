package models

// These structs define the JSON payloads exchanged by the HTTP functions in
// cmd/converter-api.

// SubmitResponse is returned after a document upload is accepted.
type SubmitResponse struct {
	JobID   string    `json:"jobId"`
	Message string    `json:"message"`
	Job     JobRecord `json:"job"`
}

// BatchSubmitResponse lists the jobs created by a multi-file upload.
type BatchSubmitResponse struct {
	FileIDs []string `json:"file_ids"`
	Message string   `json:"message"`
}

// TextUpdateRequest carries edited preview text for a completed job.
type TextUpdateRequest struct {
	Text string `json:"text"`
}

// ResultResponse carries a finished job's structured content.
type ResultResponse struct {
	JobID       string              `json:"jobId"`
	Document    *StructuredDocument `json:"document"`
	PreviewText string              `json:"previewText"`
	Pages       []PageContent       `json:"pages"`
	WordCount   int                 `json:"wordCount"`
	CharCount   int                 `json:"charCount"`
	LineCount   int                 `json:"lineCount"`
}

// PageContent is the flattened text of one page for previews.
type PageContent struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// UsageResponse reports token spend and quota headroom for one mode.
type UsageResponse struct {
	Mode                   string  `json:"mode"`
	TotalTokens            int64   `json:"totalTokens"`
	EstimatedCost          float64 `json:"estimatedCost"`
	DailyRequestsUsed      int     `json:"dailyRequestsUsed"`
	DailyRequestsRemaining int     `json:"dailyRequestsRemaining"`
	SecondsUntilReset      int64   `json:"secondsUntilReset"`
	CachedDocuments        int     `json:"cachedDocuments"`
}

// ModeInfo describes one selectable processing mode.
type ModeInfo struct {
	Name        string  `json:"name"`
	Model       string  `json:"model"`
	RPM         int     `json:"rpm"`
	RPD         int     `json:"rpd"`
	CostPerPage float64 `json:"costPerPage"`
	Description string  `json:"description"`
	Default     bool    `json:"default"`
}

// ErrorResponse is the body of a non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
