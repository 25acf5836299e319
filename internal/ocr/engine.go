// Package ocr recovers text from scanned PDFs: pages are rendered to images
// locally and sent to the recognition endpoint in small batches.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiranshivaraju/docingest/pkg/models"
)

// DefaultBatchSize is the number of pages sent per recognition call.
const DefaultBatchSize = 5

var ErrNoPages = errors.New("document has no pages")

// Renderer turns PDF pages into images.
type Renderer interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
	Render(ctx context.Context, pdf []byte, first, last int) ([]models.PageImage, error)
}

// Recognizer extracts text from a batch of page images.
type Recognizer interface {
	OCRBatch(ctx context.Context, pages []models.PageImage) (string, error)
}

// Engine runs OCR over a whole document, one batch at a time.
type Engine struct {
	renderer   Renderer
	recognizer Recognizer
	batchSize  int
}

func NewEngine(renderer Renderer, recognizer Recognizer) *Engine {
	return &Engine{renderer: renderer, recognizer: recognizer, batchSize: DefaultBatchSize}
}

// Progress is called after each batch with the last page done and the total.
type Progress func(done, total int)

// Run recognizes every page of pdf in order. Batch outputs are joined with a
// blank line. Any failed batch aborts the run.
func (e *Engine) Run(ctx context.Context, pdf []byte, progress Progress) (string, error) {
	total, err := e.renderer.PageCount(ctx, pdf)
	if err != nil {
		return "", fmt.Errorf("counting pages: %w", err)
	}
	if total <= 0 {
		return "", ErrNoPages
	}

	parts := make([]string, 0, (total+e.batchSize-1)/e.batchSize)
	for first := 1; first <= total; first += e.batchSize {
		last := min(first+e.batchSize-1, total)

		pages, err := e.renderer.Render(ctx, pdf, first, last)
		if err != nil {
			return "", fmt.Errorf("rendering pages %d-%d: %w", first, last, err)
		}
		text, err := e.recognizer.OCRBatch(ctx, pages)
		if err != nil {
			return "", fmt.Errorf("recognizing pages %d-%d: %w", first, last, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}

		slog.Debug("ocr batch done", "first_page", first, "last_page", last, "total_pages", total, "chars", len(text))
		if progress != nil {
			progress(last, total)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}
