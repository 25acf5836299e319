package ingestion

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/internal/store"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	docxMIME:          true,
	"text/plain":      true,
}

// ContentTypeAllowed reports whether files of contentType may be uploaded.
// Parameters such as charset are ignored.
func ContentTypeAllowed(contentType string) bool {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return allowedContentTypes[strings.ToLower(base)]
}

// --- Uploads ---

// CreateUpload reserves an object key for filename and returns a presigned
// URL the client can PUT the file to.
func (s *Service) CreateUpload(ctx context.Context, filename, contentType string) (*models.UploadTarget, error) {
	if !ContentTypeAllowed(contentType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}
	key := storage.ObjectKey(filename, s.now())
	url, err := s.objects.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}
	return &models.UploadTarget{SignedURL: url, Path: key}, nil
}

// DeleteUpload removes an uploaded object. Deleting a missing object succeeds.
func (s *Service) DeleteUpload(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}
	return nil
}

// --- Documents ---

func (s *Service) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]models.DocumentView, error) {
	docs, err := s.store.ListDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]models.DocumentView, len(docs))
	for i, d := range docs {
		views[i] = models.NewDocumentView(d, now)
	}
	return views, nil
}

func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentView, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewDocumentView(doc, s.now())
	return &v, nil
}
