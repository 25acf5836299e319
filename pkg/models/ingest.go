package models

import "github.com/google/uuid"

// Wire types for the ingestion endpoints. The API server decodes requests into
// these and the ingestion client encodes them.

type UploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type UploadTarget struct {
	SignedURL string `json:"signedUrl"`
	Path      string `json:"path"`
}

type DeleteUploadRequest struct {
	Path string `json:"path"`
}

type IngestTextRequest struct {
	Title    string         `json:"title"`
	Category string         `json:"category"`
	FullText string         `json:"fullText"`
	FilePath string         `json:"filePath"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IngestStartRequest is also the body of the DOCX ingestion call.
type IngestStartRequest struct {
	Title    string         `json:"title"`
	Category string         `json:"category"`
	FilePath string         `json:"filePath"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type IngestStartResult struct {
	DocumentID uuid.UUID `json:"documentId"`
}

type IngestBatchRequest struct {
	BatchText    string `json:"batchText"`
	BatchIndex   int    `json:"batchIndex"`
	TotalBatches int    `json:"totalBatches"`
}

type IngestBatchResult struct {
	OK bool `json:"ok"`
}

// IngestResult is returned by ingest-text, ingest-finish and the DOCX path.
type IngestResult struct {
	DocumentID uuid.UUID `json:"documentId"`
	Status     string    `json:"status"`
	Warning    string    `json:"warning,omitempty"`
}

const (
	ProcessStatusReady      = "ready"
	ProcessStatusProcessing = "processing"
)

type ProcessResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	JobStatusCompleted  = "completed"
	JobStatusProcessing = "processing"
	JobStatusIdle       = "idle"
)

// JobResult reports one unit of background work. DocumentID is nil when
// nothing was outstanding.
type JobResult struct {
	Status     string    `json:"status"`
	DocumentID uuid.UUID `json:"documentId"`
}

// PageImage is one rendered PDF page, encoded as a data URL.
type PageImage struct {
	PageNum int    `json:"pageNum"`
	DataURL string `json:"dataUrl"`
}

type OCRBatchRequest struct {
	PageImages []PageImage `json:"pageImages"`
}

type OCRBatchResult struct {
	ExtractedText string `json:"extractedText"`
}
