package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentBatch is one ordered segment of a document's text as received by
// ingest-batch. Batch indexes start at 1.
type DocumentBatch struct {
	DocumentID   uuid.UUID `db:"document_id"   json:"documentId"`
	BatchIndex   int       `db:"batch_index"   json:"batchIndex"`
	TotalBatches int       `db:"total_batches" json:"totalBatches"`
	Text         string    `db:"text"          json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"createdAt"`
}

// Chunk is a bounded slice of a document's text, the unit that gets embedded.
type Chunk struct {
	ID         uuid.UUID  `db:"id"          json:"id"`
	DocumentID uuid.UUID  `db:"document_id" json:"documentId"`
	Position   int        `db:"position"    json:"position"`
	Content    string     `db:"content"     json:"content"`
	TokenCount int        `db:"token_count" json:"tokenCount"`
	EmbeddedAt *time.Time `db:"embedded_at" json:"embeddedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  json:"createdAt"`
}
