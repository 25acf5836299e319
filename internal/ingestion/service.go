// Package ingestion implements the server side of the ingestion pipeline:
// accumulating document text, chunking it, embedding the chunks, and
// recognizing scanned pages.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/cache"
	"github.com/kiranshivaraju/docingest/internal/chunker"
	"github.com/kiranshivaraju/docingest/internal/llm"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/internal/store"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

const (
	// WarningEmbeddingsDegraded is returned when chunks were stored but
	// embedding must be finished by background processing.
	WarningEmbeddingsDegraded = "embeddings degraded"

	defaultEmbedBatchSize = 16
	defaultLockTTL        = 2 * time.Minute
	pendingScanLimit      = 10
)

// Options tunes a Service. Zero values select defaults.
type Options struct {
	ChunkTargetTokens  int
	ChunkOverlapTokens int
	EmbedBatchSize     int
	LockTTL            time.Duration
}

// Service runs the ingestion operations behind the HTTP API.
type Service struct {
	store      store.Store
	cache      cache.Cache
	objects    storage.ObjectStore
	embedder   llm.Embedder
	recognizer llm.Recognizer
	chunker    *chunker.Chunker
	batchSize  int
	lockTTL    time.Duration
	now        func() time.Time
}

// NewService creates a Service.
func NewService(st store.Store, ca cache.Cache, objects storage.ObjectStore, embedder llm.Embedder, recognizer llm.Recognizer, opts Options) *Service {
	s := &Service{
		store:      st,
		cache:      ca,
		objects:    objects,
		embedder:   embedder,
		recognizer: recognizer,
		chunker:    chunker.New(opts.ChunkTargetTokens, opts.ChunkOverlapTokens),
		batchSize:  opts.EmbedBatchSize,
		lockTTL:    opts.LockTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultEmbedBatchSize
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	return s
}

// --- Ingestion ---

// IngestText stores text as a single-batch document and finalizes it.
func (s *Service) IngestText(ctx context.Context, req models.IngestTextRequest) (*models.IngestResult, error) {
	doc, err := s.createDocument(ctx, req.Title, req.Category, req.FilePath, req.Metadata, 1)
	if err != nil {
		return nil, err
	}
	err = s.store.AppendBatch(ctx, &models.DocumentBatch{
		DocumentID:   doc.ID,
		BatchIndex:   1,
		TotalBatches: 1,
		Text:         req.FullText,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("storing text: %w", err)
	}

	var res *models.IngestResult
	err = s.withLock(ctx, doc.ID, func(ctx context.Context) error {
		var err error
		res, err = s.finalize(ctx, doc.ID)
		return err
	})
	return res, err
}

// Start creates a document that will receive its text in batches.
func (s *Service) Start(ctx context.Context, req models.IngestStartRequest) (uuid.UUID, error) {
	doc, err := s.createDocument(ctx, req.Title, req.Category, req.FilePath, req.Metadata, 0)
	if err != nil {
		return uuid.Nil, err
	}
	return doc.ID, nil
}

// AppendBatch stores the next batch of a document started with Start.
func (s *Service) AppendBatch(ctx context.Context, documentID uuid.UUID, req models.IngestBatchRequest) error {
	if req.TotalBatches < 1 || req.BatchIndex < 1 || req.BatchIndex > req.TotalBatches {
		return fmt.Errorf("%w: batch %d of %d", ErrInvalidBatch, req.BatchIndex, req.TotalBatches)
	}
	err := s.store.AppendBatch(ctx, &models.DocumentBatch{
		DocumentID:   documentID,
		BatchIndex:   req.BatchIndex,
		TotalBatches: req.TotalBatches,
		Text:         req.BatchText,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("appending batch %d: %w", req.BatchIndex, err)
	}
	return nil
}

// Finish finalizes a batched document once every batch has arrived. Called
// on a failed, embed-pending or stuck document it acts as Retry. A stuck
// document whose batches never all arrived is marked failed. Finishing a
// ready document is a no-op.
func (s *Service) Finish(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error) {
	var res *models.IngestResult
	err := s.withLock(ctx, documentID, func(ctx context.Context) error {
		doc, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}

		switch doc.Status {
		case models.DocumentStatusReady:
			res = &models.IngestResult{DocumentID: doc.ID, Status: doc.Status}
			return nil
		case models.DocumentStatusIngesting:
			stored, err := s.store.CountBatches(ctx, documentID)
			if err != nil {
				return fmt.Errorf("counting batches: %w", err)
			}
			if doc.TotalBatches == 0 || stored != doc.TotalBatches {
				if doc.IsStuck(s.now()) {
					res, err = s.abandonLocked(ctx, doc, stored)
					return err
				}
				return fmt.Errorf("%w: %d of %d stored", ErrIncomplete, stored, doc.TotalBatches)
			}
		default:
			return s.retryLocked(ctx, doc, &res)
		}

		res, err = s.finalize(ctx, documentID)
		return err
	})
	return res, err
}

// Retry re-chunks and re-embeds a document from its stored text.
func (s *Service) Retry(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error) {
	var res *models.IngestResult
	err := s.withLock(ctx, documentID, func(ctx context.Context) error {
		doc, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}
		return s.retryLocked(ctx, doc, &res)
	})
	return res, err
}

func (s *Service) retryLocked(ctx context.Context, doc *models.Document, res **models.IngestResult) error {
	if !store.CanTransition(doc.Status, models.DocumentStatusProcessing) {
		return fmt.Errorf("%w: %s", ErrNotProcessable, doc.Status)
	}
	stored, err := s.store.CountBatches(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("counting batches: %w", err)
	}
	if doc.TotalBatches == 0 || stored < doc.TotalBatches {
		return fmt.Errorf("%w: %d of %d batches stored, re-ingest the file", ErrNotProcessable, stored, doc.TotalBatches)
	}
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, models.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("marking processing: %w", err)
	}
	slog.Info("retrying document", "document_id", doc.ID, "from_status", doc.Status)

	r, err := s.finalize(ctx, doc.ID)
	*res = r
	return err
}

// abandonLocked fails a document whose upload stopped before every batch
// arrived. The caller holds the document lock.
func (s *Service) abandonLocked(ctx context.Context, doc *models.Document, stored int) (*models.IngestResult, error) {
	reason := fmt.Sprintf("upload abandoned with %d of %d batches stored", stored, doc.TotalBatches)
	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, models.DocumentStatusFailed, store.WithErrorReason(reason)); err != nil {
		return nil, fmt.Errorf("marking failed: %w", err)
	}
	slog.Warn("incomplete document failed", "document_id", doc.ID, "batches", stored, "total_batches", doc.TotalBatches)
	return &models.IngestResult{DocumentID: doc.ID, Status: models.DocumentStatusFailed, Warning: reason}, nil
}

// finalize chunks the stored text and embeds as much as it can. The caller
// holds the document lock.
func (s *Service) finalize(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error) {
	total, err := s.rechunk(ctx, documentID)
	if err != nil {
		return nil, err
	}

	res := &models.IngestResult{DocumentID: documentID, Status: models.DocumentStatusEmbedPending}
	if err := s.embedAll(ctx, documentID); err != nil {
		slog.Warn("embedding deferred", "document_id", documentID, "error", err)
		res.Warning = WarningEmbeddingsDegraded
		return res, nil
	}

	if err := s.store.UpdateDocumentStatus(ctx, documentID, models.DocumentStatusReady, store.WithTotalChunks(total)); err != nil {
		return nil, fmt.Errorf("marking ready: %w", err)
	}
	res.Status = models.DocumentStatusReady
	slog.Info("document ready", "document_id", documentID, "chunks", total)
	return res, nil
}

// rechunk replaces the document's chunks with a fresh split of its stored
// text and moves it to chunks_ok_embed_pending.
func (s *Service) rechunk(ctx context.Context, documentID uuid.UUID) (int, error) {
	text, err := s.store.GetDocumentText(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("reading text: %w", err)
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		reason := "no text content after chunking"
		if err := s.store.UpdateDocumentStatus(ctx, documentID, models.DocumentStatusFailed, store.WithErrorReason(reason)); err != nil {
			return 0, fmt.Errorf("marking failed: %w", err)
		}
		return 0, ErrEmptyText
	}

	now := s.now()
	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &models.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			Position:   p.Position,
			Content:    p.Content,
			TokenCount: p.TokenCount,
			CreatedAt:  now,
		}
	}
	if err := s.store.ReplaceChunks(ctx, documentID, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	if err := s.store.UpdateDocumentStatus(ctx, documentID, models.DocumentStatusEmbedPending, store.WithTotalChunks(len(chunks))); err != nil {
		return 0, fmt.Errorf("marking embed pending: %w", err)
	}
	return len(chunks), nil
}

func (s *Service) embedAll(ctx context.Context, documentID uuid.UUID) error {
	for {
		n, err := s.embedNext(ctx, documentID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// embedNext embeds up to one batch of unembedded chunks and returns how many
// it embedded.
func (s *Service) embedNext(ctx context.Context, documentID uuid.UUID) (int, error) {
	chunks, err := s.store.ListUnembeddedChunks(ctx, documentID, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding chunks: %w: %d vectors for %d chunks", llm.ErrInvalidResponse, len(vectors), len(chunks))
	}

	embeddings := make([]store.ChunkEmbedding, len(chunks))
	for i, c := range chunks {
		embeddings[i] = store.ChunkEmbedding{ChunkID: c.ID, Vector: vectors[i]}
	}
	if err := s.store.SetChunkEmbeddings(ctx, embeddings); err != nil {
		return 0, fmt.Errorf("storing embeddings: %w", err)
	}
	return len(chunks), nil
}

// --- Background processing ---

// ProcessDocument runs one unit of background work on a document.
func (s *Service) ProcessDocument(ctx context.Context, documentID uuid.UUID) (*models.ProcessResult, error) {
	var res *models.ProcessResult
	err := s.withLock(ctx, documentID, func(ctx context.Context) error {
		doc, err := s.store.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}
		res, err = s.processLocked(ctx, doc)
		return err
	})
	switch {
	case errors.Is(err, ErrLocked):
		return &models.ProcessResult{Status: models.ProcessStatusProcessing, Message: "document is being processed"}, nil
	case errors.Is(err, errEmbedDeferred):
		return &models.ProcessResult{Status: models.ProcessStatusProcessing, Message: "embedding failed, will retry"}, nil
	}
	return res, err
}

// ProcessNextJob runs one unit of work on the oldest outstanding document
// that is not locked by another worker. A document whose embedding fails
// keeps its place in the queue and the scan moves on to the next candidate.
func (s *Service) ProcessNextJob(ctx context.Context) (*models.JobResult, error) {
	docs, err := s.store.ListPendingDocuments(ctx, pendingScanLimit)
	if err != nil {
		return nil, fmt.Errorf("listing pending documents: %w", err)
	}
	if len(docs) == 0 {
		return &models.JobResult{Status: models.JobStatusIdle}, nil
	}

	deferred := uuid.Nil
	for _, doc := range docs {
		var res *models.ProcessResult
		err := s.withLock(ctx, doc.ID, func(ctx context.Context) error {
			current, err := s.store.GetDocument(ctx, doc.ID)
			if err != nil {
				return err
			}
			res, err = s.processLocked(ctx, current)
			return err
		})
		if errors.Is(err, ErrLocked) {
			continue
		}
		if errors.Is(err, errEmbedDeferred) {
			if deferred == uuid.Nil {
				deferred = doc.ID
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		status := models.JobStatusProcessing
		if res.Status == models.ProcessStatusReady {
			status = models.JobStatusCompleted
		}
		return &models.JobResult{Status: status, DocumentID: doc.ID}, nil
	}
	return &models.JobResult{Status: models.JobStatusProcessing, DocumentID: deferred}, nil
}

func (s *Service) processLocked(ctx context.Context, doc *models.Document) (*models.ProcessResult, error) {
	switch doc.Status {
	case models.DocumentStatusReady:
		return &models.ProcessResult{Status: models.ProcessStatusReady}, nil
	case models.DocumentStatusIngesting:
		return &models.ProcessResult{Status: models.ProcessStatusProcessing, Message: "waiting for remaining batches"}, nil
	case models.DocumentStatusProcessing, models.DocumentStatusEmbedPending:
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotProcessable, doc.Status)
	}

	total, _, err := s.store.CountChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	if total == 0 {
		if doc.Status == models.DocumentStatusEmbedPending {
			if err := s.store.UpdateDocumentStatus(ctx, doc.ID, models.DocumentStatusProcessing); err != nil {
				return nil, fmt.Errorf("marking processing: %w", err)
			}
		}
		if total, err = s.rechunk(ctx, doc.ID); err != nil {
			return nil, err
		}
	}

	n, err := s.embedNext(ctx, doc.ID)
	if err != nil {
		slog.Warn("background embedding failed", "document_id", doc.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", errEmbedDeferred, err)
	}

	_, remaining, err := s.store.CountChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	if remaining == 0 {
		if err := s.store.UpdateDocumentStatus(ctx, doc.ID, models.DocumentStatusReady, store.WithTotalChunks(total)); err != nil {
			return nil, fmt.Errorf("marking ready: %w", err)
		}
		slog.Info("document ready", "document_id", doc.ID, "chunks", total)
		return &models.ProcessResult{Status: models.ProcessStatusReady}, nil
	}

	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, models.DocumentStatusProcessing); err != nil {
		return nil, fmt.Errorf("marking processing: %w", err)
	}
	return &models.ProcessResult{
		Status:  models.ProcessStatusProcessing,
		Message: fmt.Sprintf("embedded %d chunks, %d remaining", n, remaining),
	}, nil
}

// --- Helpers ---

func (s *Service) createDocument(ctx context.Context, title, category, filePath string, metadata map[string]any, totalBatches int) (*models.Document, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = models.DefaultCategory
	}
	now := s.now()
	doc := &models.Document{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(title),
		Category:     category,
		Status:       models.DocumentStatusIngesting,
		TotalBatches: totalBatches,
		FilePath:     filePath,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	slog.Info("document created", "document_id", doc.ID, "title", doc.Title, "total_batches", totalBatches)
	return doc, nil
}

// withLock runs fn while holding the document's processing lock. The lock is
// released even if ctx is cancelled.
func (s *Service) withLock(ctx context.Context, documentID uuid.UUID, fn func(ctx context.Context) error) error {
	key := cache.DocumentLockKey(documentID)
	token, ok, err := s.cache.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			slog.Warn("releasing document lock", "document_id", documentID, "error", err)
		}
	}()
	return fn(ctx)
}
