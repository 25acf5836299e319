package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid document status transition")
var ErrBatchOutOfOrder = errors.New("batch out of order")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	CountAPIKeys(ctx context.Context) (int, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*models.Document, error)
	ListPendingDocuments(ctx context.Context, limit int) ([]*models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string, opts ...DocumentUpdateOption) error

	AppendBatch(ctx context.Context, batch *models.DocumentBatch) error
	CountBatches(ctx context.Context, documentID uuid.UUID) (int, error)
	GetDocumentText(ctx context.Context, documentID uuid.UUID) (string, error)

	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []*models.Chunk) error
	ListUnembeddedChunks(ctx context.Context, documentID uuid.UUID, limit int) ([]*models.Chunk, error)
	SetChunkEmbeddings(ctx context.Context, embeddings []ChunkEmbedding) error
	CountChunks(ctx context.Context, documentID uuid.UUID) (total, unembedded int, err error)
}

// DocumentFilter narrows ListDocuments. Zero values mean no filter.
type DocumentFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

// ChunkEmbedding is the vector computed for one chunk.
type ChunkEmbedding struct {
	ChunkID uuid.UUID
	Vector  []float32
}

// DocumentUpdate holds the optional fields set alongside a status change.
type DocumentUpdate struct {
	ErrorReason *string
	TotalChunks *int
}

type DocumentUpdateOption func(*DocumentUpdate)

func WithErrorReason(reason string) DocumentUpdateOption {
	return func(p *DocumentUpdate) {
		p.ErrorReason = &reason
	}
}

func WithTotalChunks(n int) DocumentUpdateOption {
	return func(p *DocumentUpdate) {
		p.TotalChunks = &n
	}
}

// ApplyUpdateOptions collects opts into a DocumentUpdate.
func ApplyUpdateOptions(opts ...DocumentUpdateOption) DocumentUpdate {
	var u DocumentUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// validTransitions lists the statuses reachable from each status. Retry
// re-enters processing from failed, chunks_ok_embed_pending, or a stuck
// processing/ingesting document.
var validTransitions = map[string][]string{
	models.DocumentStatusUploaded:     {models.DocumentStatusIngesting},
	models.DocumentStatusIngesting:    {models.DocumentStatusProcessing, models.DocumentStatusEmbedPending, models.DocumentStatusReady, models.DocumentStatusFailed},
	models.DocumentStatusProcessing:   {models.DocumentStatusEmbedPending, models.DocumentStatusReady, models.DocumentStatusFailed, models.DocumentStatusProcessing},
	models.DocumentStatusEmbedPending: {models.DocumentStatusProcessing, models.DocumentStatusReady, models.DocumentStatusFailed},
	models.DocumentStatusFailed:       {models.DocumentStatusProcessing},
}

// CanTransition reports whether a document may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
