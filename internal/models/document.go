package models

import "time"

// JobStatus is the lifecycle state of a conversion job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobRecord tracks the overall status and metadata of one submitted document.
// It is kept in memory by the job tracker and mirrored to Firestore when configured.
type JobRecord struct {
	ID          string    `firestore:"id" json:"id"`
	Name        string    `firestore:"name,omitempty" json:"name,omitempty"`
	Status      JobStatus `firestore:"status" json:"status"`
	Progress    int       `firestore:"progress" json:"progress"`
	Message     string    `firestore:"message,omitempty" json:"message,omitempty"`
	Error       string    `firestore:"errorDetails,omitempty" json:"error,omitempty"`
	Mode        string    `firestore:"mode,omitempty" json:"mode,omitempty"`
	PageCount   int       `firestore:"pageCount,omitempty" json:"pageCount,omitempty"`
	FileSize    int       `firestore:"fileSize,omitempty" json:"fileSize,omitempty"`
	ContentHash string    `firestore:"fileHash,omitempty" json:"fileHash,omitempty"`
	FromCache   bool      `firestore:"fromCache" json:"fromCache"`
	OutputPath  string    `firestore:"outputPath,omitempty" json:"-"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// SourceDocument is an uploaded document awaiting conversion.
type SourceDocument struct {
	Name    string
	Content []byte
}
