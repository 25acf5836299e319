package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kiranshivaraju/docingest/internal/api/response"
	"github.com/kiranshivaraju/docingest/internal/ingestion"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// Recognizer transcribes rendered PDF pages.
type Recognizer interface {
	RecognizePages(ctx context.Context, pages []models.PageImage) (string, error)
}

// NewOCRBatchHandler returns an http.HandlerFunc for POST /api/v1/ocr/batch.
func NewOCRBatchHandler(svc Recognizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.OCRBatchRequest
		if !decodeJSON(w, r, ocrBodyLimit, &req) {
			return
		}
		if len(req.PageImages) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "pageImages is required", nil)
			return
		}
		if len(req.PageImages) > ingestion.MaxOCRPages {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("at most %d pages per batch", ingestion.MaxOCRPages), nil)
			return
		}

		text, err := svc.RecognizePages(r.Context(), req.PageImages)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, models.OCRBatchResult{ExtractedText: text})
	}
}
