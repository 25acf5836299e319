package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kiranshivaraju/docingest/internal/llm"
	"github.com/kiranshivaraju/docingest/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxOCRPages is the most pages accepted in one ocr-batch call.
	MaxOCRPages = 5

	recognizeConcurrency = 5
)

// RecognizePages transcribes rendered pages concurrently and joins the
// results in page order.
func (s *Service) RecognizePages(ctx context.Context, pages []models.PageImage) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: no pages", ErrInvalidBatch)
	}
	if len(pages) > MaxOCRPages {
		return "", fmt.Errorf("%w: %d > %d", ErrTooManyPages, len(pages), MaxOCRPages)
	}

	sorted := slices.Clone(pages)
	slices.SortStableFunc(sorted, func(a, b models.PageImage) int { return a.PageNum - b.PageNum })

	type image struct {
		mimeType string
		data     []byte
	}
	images := make([]image, len(sorted))
	for i, p := range sorted {
		mimeType, data, err := llm.DecodeDataURL(p.DataURL)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", p.PageNum, err)
		}
		images[i] = image{mimeType: mimeType, data: data}
	}

	texts := make([]string, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recognizeConcurrency)
	for i := range sorted {
		g.Go(func() error {
			text, err := s.recognizer.RecognizePage(gctx, images[i].mimeType, images[i].data)
			if err != nil {
				return fmt.Errorf("page %d: %w", sorted[i].PageNum, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	slog.Debug("pages recognized", "pages", len(sorted), "first_page", sorted[0].PageNum)
	return strings.Join(texts, "\n"), nil
}
