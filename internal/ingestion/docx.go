package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// IngestDocx downloads an uploaded DOCX, extracts its text and ingests it
// like IngestText.
func (s *Service) IngestDocx(ctx context.Context, req models.IngestStartRequest) (*models.IngestResult, error) {
	if err := storage.ValidateKey(req.FilePath); err != nil {
		return nil, err
	}
	data, err := s.objects.Download(ctx, req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("downloading docx: %w", err)
	}

	text, err := extractDocx(data)
	if err != nil {
		return nil, err
	}

	return s.IngestText(ctx, models.IngestTextRequest{
		Title:    req.Title,
		Category: req.Category,
		FullText: text,
		FilePath: req.FilePath,
		Metadata: req.Metadata,
	})
}

func extractDocx(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), docxMIME, false)
	if err != nil {
		return "", fmt.Errorf("extracting docx: %w", err)
	}
	text := strings.TrimSpace(res.Body)
	if text == "" {
		return "", fmt.Errorf("extracting docx: %w", ErrEmptyText)
	}
	return text, nil
}
