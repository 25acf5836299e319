// Package models defines the shared domain types for the docingest
// pipeline. Types are used by both the API server and the ingestion client,
// so they carry both db and json tags.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentStatusUploaded     = "uploaded"
	DocumentStatusIngesting    = "ingesting"
	DocumentStatusProcessing   = "processing"
	DocumentStatusEmbedPending = "chunks_ok_embed_pending"
	DocumentStatusReady        = "ready"
	DocumentStatusFailed       = "failed"
)

// DefaultCategory is assigned to documents ingested without a category.
const DefaultCategory = "geral"

// StuckAfter is how long a document may stay in a processing status without
// an update before it is reported as stuck.
const StuckAfter = 5 * time.Minute

// Document is a single ingested file. The ingestion pipeline only reads and
// writes the fields declared here.
type Document struct {
	ID           uuid.UUID      `db:"id"            json:"id"`
	Title        string         `db:"title"         json:"title"`
	Category     string         `db:"category"      json:"category"`
	Status       string         `db:"status"        json:"status"`
	ErrorReason  *string        `db:"error_reason"  json:"errorReason,omitempty"`
	TotalChunks  *int           `db:"total_chunks"  json:"totalChunks,omitempty"`
	TotalBatches int            `db:"total_batches" json:"totalBatches"`
	FilePath     string         `db:"file_path"     json:"filePath"`
	Metadata     map[string]any `db:"metadata"      json:"metadata,omitempty"`
	CreatedAt    time.Time      `db:"created_at"    json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at"    json:"updatedAt"`
}

// IsProcessingStatus reports whether status is one in which background work
// is still expected to move the document forward.
func IsProcessingStatus(status string) bool {
	switch status {
	case DocumentStatusProcessing, DocumentStatusIngesting, DocumentStatusEmbedPending:
		return true
	}
	return false
}

// IsTerminalStatus reports whether no further automatic transition is expected.
func IsTerminalStatus(status string) bool {
	return status == DocumentStatusReady || status == DocumentStatusFailed
}

// IsStuck reports whether the document has been in a processing status for
// longer than StuckAfter as of now.
func (d *Document) IsStuck(now time.Time) bool {
	return IsProcessingStatus(d.Status) && now.Sub(d.UpdatedAt) > StuckAfter
}

// DocumentView is the API representation of a document, including the
// derived stuck flag.
type DocumentView struct {
	Document
	Stuck bool `json:"stuck"`
}

// NewDocumentView evaluates the stuck flag for d as of now.
func NewDocumentView(d *Document, now time.Time) DocumentView {
	return DocumentView{Document: *d, Stuck: d.IsStuck(now)}
}

// DisplayStatus returns "stuck" for stuck documents and the stored status otherwise.
func (v DocumentView) DisplayStatus() string {
	if v.Stuck {
		return "stuck"
	}
	return v.Status
}
