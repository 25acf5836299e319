package ingestion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/cache"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/internal/store"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// memStore is an in-memory store.Store with the same status and batch rules
// as the Postgres implementation.
type memStore struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*models.Document
	batches map[uuid.UUID][]*models.DocumentBatch
	chunks  map[uuid.UUID][]*models.Chunk
	history map[uuid.UUID][]string
}

func newMemStore() *memStore {
	return &memStore{
		docs:    map[uuid.UUID]*models.Document{},
		batches: map[uuid.UUID][]*models.DocumentBatch{},
		chunks:  map[uuid.UUID][]*models.Chunk{},
		history: map[uuid.UUID][]string{},
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) GetAPIKeyByPrefix(context.Context, string) ([]*models.APIKey, error) {
	return nil, nil
}
func (m *memStore) UpdateAPIKeyLastUsed(context.Context, uuid.UUID) error   { return nil }
func (m *memStore) CreateAPIKey(context.Context, *models.APIKey) error      { return nil }
func (m *memStore) CountAPIKeys(context.Context) (int, error)               { return 0, nil }

func (m *memStore) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return store.ErrDuplicateKey
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	m.history[doc.ID] = []string{doc.Status}
	return nil
}

func (m *memStore) GetDocument(_ context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListDocuments(_ context.Context, filter store.DocumentFilter) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.docs {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListPendingDocuments(_ context.Context, limit int) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.docs {
		if d.Status == models.DocumentStatusProcessing || d.Status == models.DocumentStatusEmbedPending {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateDocumentStatus(_ context.Context, id uuid.UUID, status string, opts ...store.DocumentUpdateOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	if !store.CanTransition(d.Status, status) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, d.Status, status)
	}
	u := store.ApplyUpdateOptions(opts...)
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	switch {
	case u.ErrorReason != nil:
		d.ErrorReason = u.ErrorReason
	case status != models.DocumentStatusFailed:
		d.ErrorReason = nil
	}
	if u.TotalChunks != nil {
		d.TotalChunks = u.TotalChunks
	}
	m.history[id] = append(m.history[id], status)
	return nil
}

func (m *memStore) AppendBatch(_ context.Context, b *models.DocumentBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[b.DocumentID]
	if !ok {
		return store.ErrNotFound
	}
	if d.Status != models.DocumentStatusIngesting {
		return fmt.Errorf("%w: document is %s", store.ErrInvalidTransition, d.Status)
	}
	if d.TotalBatches > 0 && b.TotalBatches != d.TotalBatches {
		return store.ErrBatchOutOfOrder
	}
	stored := m.batches[b.DocumentID]
	if n := len(stored); b.BatchIndex == n && n > 0 && stored[n-1].Text == b.Text {
		return nil
	}
	if b.BatchIndex != len(stored)+1 || b.BatchIndex > b.TotalBatches {
		return store.ErrBatchOutOfOrder
	}
	cp := *b
	m.batches[b.DocumentID] = append(stored, &cp)
	d.TotalBatches = b.TotalBatches
	return nil
}

func (m *memStore) CountBatches(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches[id]), nil
}

func (m *memStore) GetDocumentText(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	for _, batch := range m.batches[id] {
		b.WriteString(batch.Text)
	}
	return b.String(), nil
}

func (m *memStore) ReplaceChunks(_ context.Context, id uuid.UUID, chunks []*models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[id] = chunks
	return nil
}

func (m *memStore) ListUnembeddedChunks(_ context.Context, id uuid.UUID, limit int) ([]*models.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Chunk
	for _, c := range m.chunks[id] {
		if c.EmbeddedAt == nil && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) SetChunkEmbeddings(_ context.Context, embeddings []store.ChunkEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, e := range embeddings {
		for _, cs := range m.chunks {
			for _, c := range cs {
				if c.ID == e.ChunkID {
					c.EmbeddedAt = &now
				}
			}
		}
	}
	return nil
}

func (m *memStore) CountChunks(_ context.Context, id uuid.UUID) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, pending := 0, 0
	for _, c := range m.chunks[id] {
		total++
		if c.EmbeddedAt == nil {
			pending++
		}
	}
	return total, pending, nil
}

func (m *memStore) setStatus(id uuid.UUID, status string, updatedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id].Status = status
	m.docs[id].UpdatedAt = updatedAt
}

func (m *memStore) statusHistory(id uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history[id]...)
}

// memCache holds locks in a map.
type memCache struct {
	mu    sync.Mutex
	locks map[string]string
}

func newMemCache() *memCache { return &memCache{locks: map[string]string{}} }

func (c *memCache) Ping(context.Context) error { return nil }

func (c *memCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (c *memCache) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[key]; held {
		return "", false, nil
	}
	token := uuid.NewString()
	c.locks[key] = token
	return token, true, nil
}

func (c *memCache) ReleaseLock(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == token {
		delete(c.locks, key)
	}
	return nil
}

func (c *memCache) held() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}

// memObjects is an in-memory storage.ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (o *memObjects) PresignPut(_ context.Context, key, contentType string) (string, error) {
	return "https://bucket.example/" + key + "?X-Amz-Signature=abc", nil
}

func (o *memObjects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	o.deleted = append(o.deleted, key)
	return nil
}

func (o *memObjects) Download(_ context.Context, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

var (
	_ store.Store         = (*memStore)(nil)
	_ cache.Cache         = (*memCache)(nil)
	_ storage.ObjectStore = (*memObjects)(nil)
)
