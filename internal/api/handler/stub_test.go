package handler_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/api/handler"
	"github.com/kiranshivaraju/docingest/internal/store"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// stubService satisfies every handler service interface. Unset funcs
// return zero values.
type stubService struct {
	CreateUploadFunc    func(ctx context.Context, filename, contentType string) (*models.UploadTarget, error)
	DeleteUploadFunc    func(ctx context.Context, key string) error
	IngestTextFunc      func(ctx context.Context, req models.IngestTextRequest) (*models.IngestResult, error)
	StartFunc           func(ctx context.Context, req models.IngestStartRequest) (uuid.UUID, error)
	AppendBatchFunc     func(ctx context.Context, id uuid.UUID, req models.IngestBatchRequest) error
	FinishFunc          func(ctx context.Context, id uuid.UUID) (*models.IngestResult, error)
	IngestDocxFunc      func(ctx context.Context, req models.IngestStartRequest) (*models.IngestResult, error)
	ListDocumentsFunc   func(ctx context.Context, filter store.DocumentFilter) ([]models.DocumentView, error)
	GetDocumentFunc     func(ctx context.Context, id uuid.UUID) (*models.DocumentView, error)
	ProcessDocumentFunc func(ctx context.Context, id uuid.UUID) (*models.ProcessResult, error)
	ProcessNextJobFunc  func(ctx context.Context) (*models.JobResult, error)
	RecognizePagesFunc  func(ctx context.Context, pages []models.PageImage) (string, error)
}

func (s *stubService) CreateUpload(ctx context.Context, filename, contentType string) (*models.UploadTarget, error) {
	if s.CreateUploadFunc != nil {
		return s.CreateUploadFunc(ctx, filename, contentType)
	}
	return &models.UploadTarget{}, nil
}

func (s *stubService) DeleteUpload(ctx context.Context, key string) error {
	if s.DeleteUploadFunc != nil {
		return s.DeleteUploadFunc(ctx, key)
	}
	return nil
}

func (s *stubService) IngestText(ctx context.Context, req models.IngestTextRequest) (*models.IngestResult, error) {
	if s.IngestTextFunc != nil {
		return s.IngestTextFunc(ctx, req)
	}
	return &models.IngestResult{}, nil
}

func (s *stubService) Start(ctx context.Context, req models.IngestStartRequest) (uuid.UUID, error) {
	if s.StartFunc != nil {
		return s.StartFunc(ctx, req)
	}
	return uuid.New(), nil
}

func (s *stubService) AppendBatch(ctx context.Context, id uuid.UUID, req models.IngestBatchRequest) error {
	if s.AppendBatchFunc != nil {
		return s.AppendBatchFunc(ctx, id, req)
	}
	return nil
}

func (s *stubService) Finish(ctx context.Context, id uuid.UUID) (*models.IngestResult, error) {
	if s.FinishFunc != nil {
		return s.FinishFunc(ctx, id)
	}
	return &models.IngestResult{DocumentID: id, Status: models.DocumentStatusReady}, nil
}

func (s *stubService) IngestDocx(ctx context.Context, req models.IngestStartRequest) (*models.IngestResult, error) {
	if s.IngestDocxFunc != nil {
		return s.IngestDocxFunc(ctx, req)
	}
	return &models.IngestResult{}, nil
}

func (s *stubService) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]models.DocumentView, error) {
	if s.ListDocumentsFunc != nil {
		return s.ListDocumentsFunc(ctx, filter)
	}
	return nil, nil
}

func (s *stubService) GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentView, error) {
	if s.GetDocumentFunc != nil {
		return s.GetDocumentFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (s *stubService) ProcessDocument(ctx context.Context, id uuid.UUID) (*models.ProcessResult, error) {
	if s.ProcessDocumentFunc != nil {
		return s.ProcessDocumentFunc(ctx, id)
	}
	return &models.ProcessResult{Status: models.ProcessStatusReady}, nil
}

func (s *stubService) ProcessNextJob(ctx context.Context) (*models.JobResult, error) {
	if s.ProcessNextJobFunc != nil {
		return s.ProcessNextJobFunc(ctx)
	}
	return &models.JobResult{Status: models.JobStatusIdle}, nil
}

func (s *stubService) RecognizePages(ctx context.Context, pages []models.PageImage) (string, error) {
	if s.RecognizePagesFunc != nil {
		return s.RecognizePagesFunc(ctx, pages)
	}
	return "", nil
}

var (
	_ handler.Uploads    = (*stubService)(nil)
	_ handler.Ingestor   = (*stubService)(nil)
	_ handler.Documents  = (*stubService)(nil)
	_ handler.Recognizer = (*stubService)(nil)
)
