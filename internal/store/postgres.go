package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/docingest/pkg/models"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountAPIKeys(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys WHERE deleted_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return n, nil
}

// --- Documents ---

const documentColumns = `id, title, category, status, error_reason, total_chunks, total_batches,
	file_path, metadata, created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.Title, &d.Category, &d.Status, &d.ErrorReason, &d.TotalChunks,
		&d.TotalBatches, &d.FilePath, &d.Metadata, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, title, category, status, total_batches, file_path, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.Title, doc.Category, doc.Status, doc.TotalBatches, doc.FilePath, doc.Metadata,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d, err := scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*models.Document, error) {
	var where []string
	var args []any
	argIdx := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, max(filter.Offset, 0))

	return s.queryDocuments(ctx, query, args...)
}

// ListPendingDocuments returns the documents with background work left,
// least recently updated first.
func (s *PostgresStore) ListPendingDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE status IN ($1, $2)
		 ORDER BY updated_at ASC LIMIT $3`,
		models.DocumentStatusProcessing, models.DocumentStatusEmbedPending, limit)
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus moves a document to status if validTransitions allows
// it. Leaving failed clears error_reason.
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string, opts ...DocumentUpdateOption) error {
	params := ApplyUpdateOptions(opts...)

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get document status: %w", err)
	}

	if !CanTransition(currentStatus, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	query := `UPDATE documents SET status = $3, updated_at = $4`
	args := []any{id, currentStatus, status, time.Now().UTC()}
	argIdx := 5

	switch {
	case params.ErrorReason != nil:
		query += fmt.Sprintf(", error_reason = $%d", argIdx)
		args = append(args, *params.ErrorReason)
		argIdx++
	case status != models.DocumentStatusFailed:
		query += ", error_reason = NULL"
	}
	if params.TotalChunks != nil {
		query += fmt.Sprintf(", total_chunks = $%d", argIdx)
		args = append(args, *params.TotalChunks)
		argIdx++
	}

	// Guarding on the status read above turns a concurrent change into an
	// invalid transition instead of a lost update.
	query += " WHERE id = $1 AND status = $2"

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, currentStatus)
	}
	return nil
}

// --- Batches ---

// AppendBatch stores the next batch of a document still in ingesting.
// Batches must arrive in order starting at 1. Re-sending the last stored
// batch with identical content is a no-op.
func (s *PostgresStore) AppendBatch(ctx context.Context, batch *models.DocumentBatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status string
	var totalBatches int
	err = tx.QueryRow(ctx,
		`SELECT status, total_batches FROM documents WHERE id = $1 FOR UPDATE`, batch.DocumentID,
	).Scan(&status, &totalBatches)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock document: %w", err)
	}
	if status != models.DocumentStatusIngesting {
		return fmt.Errorf("%w: document is %s", ErrInvalidTransition, status)
	}
	if totalBatches > 0 && batch.TotalBatches != totalBatches {
		return fmt.Errorf("%w: total batches changed from %d to %d", ErrBatchOutOfOrder, totalBatches, batch.TotalBatches)
	}

	var stored int
	var lastText string
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE((SELECT text FROM document_batches WHERE document_id = $1 ORDER BY batch_index DESC LIMIT 1), '')
		 FROM document_batches WHERE document_id = $1`, batch.DocumentID,
	).Scan(&stored, &lastText)
	if err != nil {
		return fmt.Errorf("count batches: %w", err)
	}

	if batch.BatchIndex == stored && stored > 0 && lastText == batch.Text {
		return nil
	}
	if batch.BatchIndex != stored+1 {
		return fmt.Errorf("%w: expected batch %d, got %d", ErrBatchOutOfOrder, stored+1, batch.BatchIndex)
	}
	if batch.BatchIndex > batch.TotalBatches {
		return fmt.Errorf("%w: batch %d exceeds total %d", ErrBatchOutOfOrder, batch.BatchIndex, batch.TotalBatches)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO document_batches (document_id, batch_index, total_batches, text, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		batch.DocumentID, batch.BatchIndex, batch.TotalBatches, batch.Text, batch.CreatedAt); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: batch %d already stored", ErrBatchOutOfOrder, batch.BatchIndex)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE documents SET total_batches = $2, updated_at = NOW() WHERE id = $1`,
		batch.DocumentID, batch.TotalBatches); err != nil {
		return fmt.Errorf("update document batches: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountBatches(ctx context.Context, documentID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_batches WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return n, nil
}

// GetDocumentText concatenates the stored batches in order.
func (s *PostgresStore) GetDocumentText(ctx context.Context, documentID uuid.UUID) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT text FROM document_batches WHERE document_id = $1 ORDER BY batch_index`, documentID)
	if err != nil {
		return "", fmt.Errorf("get document text: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	n := 0
	for rows.Next() {
		var part string
		if err := rows.Scan(&part); err != nil {
			return "", fmt.Errorf("scan batch: %w", err)
		}
		b.WriteString(part)
		n++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read batches: %w", err)
	}
	if n == 0 {
		return "", ErrNotFound
	}
	return b.String(), nil
}

// --- Chunks ---

// ReplaceChunks swaps all chunks of a document in one transaction.
func (s *PostgresStore) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []*models.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace chunks: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"document_chunks"},
		[]string{"id", "document_id", "position", "content", "token_count", "created_at"},
		pgx.CopyFromSlice(len(chunks), func(i int) ([]any, error) {
			c := chunks[i]
			return []any{c.ID, documentID, c.Position, c.Content, c.TokenCount, c.CreatedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace chunks: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUnembeddedChunks(ctx context.Context, documentID uuid.UUID, limit int) ([]*models.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, position, content, token_count, embedded_at, created_at
		 FROM document_chunks WHERE document_id = $1 AND embedded_at IS NULL
		 ORDER BY position LIMIT $2`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unembedded chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Content, &c.TokenCount,
			&c.EmbeddedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// SetChunkEmbeddings writes vectors for the given chunks in one round trip.
func (s *PostgresStore) SetChunkEmbeddings(ctx context.Context, embeddings []ChunkEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range embeddings {
		batch.Queue(`UPDATE document_chunks SET embedding = $2, embedded_at = NOW() WHERE id = $1`,
			e.ChunkID, pgvector.NewVector(e.Vector))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range embeddings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("set chunk embedding: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CountChunks(ctx context.Context, documentID uuid.UUID) (int, int, error) {
	var total, unembedded int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE embedded_at IS NULL)
		 FROM document_chunks WHERE document_id = $1`, documentID).Scan(&total, &unembedded)
	if err != nil {
		return 0, 0, fmt.Errorf("count chunks: %w", err)
	}
	return total, unembedded, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
