package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/api/response"
	"github.com/kiranshivaraju/docingest/pkg/models"
	"github.com/kiranshivaraju/docingest/pkg/payload"
)

// Ingestor accepts document text, whole or in batches.
type Ingestor interface {
	IngestText(ctx context.Context, req models.IngestTextRequest) (*models.IngestResult, error)
	Start(ctx context.Context, req models.IngestStartRequest) (uuid.UUID, error)
	AppendBatch(ctx context.Context, documentID uuid.UUID, req models.IngestBatchRequest) error
	Finish(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error)
	IngestDocx(ctx context.Context, req models.IngestStartRequest) (*models.IngestResult, error)
}

// NewIngestTextHandler returns an http.HandlerFunc for POST /api/v1/ingest/text.
func NewIngestTextHandler(svc Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.IngestTextRequest
		if !decodeJSON(w, r, textBodyLimit, &req) {
			return
		}
		if !validTitle(w, req.Title) {
			return
		}
		if strings.TrimSpace(req.FullText) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "fullText is required", nil)
			return
		}
		if len(req.FullText) > payload.SingleShotLimit {
			response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("fullText exceeds %d bytes; use batched ingestion", payload.SingleShotLimit), nil)
			return
		}

		res, err := svc.IngestText(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewIngestStartHandler returns an http.HandlerFunc for POST /api/v1/ingest/start.
func NewIngestStartHandler(svc Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.IngestStartRequest
		if !decodeJSON(w, r, defaultBodyLimit, &req) {
			return
		}
		if !validTitle(w, req.Title) {
			return
		}

		id, err := svc.Start(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, models.IngestStartResult{DocumentID: id})
	}
}

// NewIngestBatchHandler returns an http.HandlerFunc for
// POST /api/v1/ingest/{documentID}/batches.
func NewIngestBatchHandler(svc Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := documentID(w, r)
		if !ok {
			return
		}
		var req models.IngestBatchRequest
		if !decodeJSON(w, r, textBodyLimit, &req) {
			return
		}
		if len(req.BatchText) > payload.MaxBatchBytes {
			response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("batchText exceeds %d bytes", payload.MaxBatchBytes), nil)
			return
		}

		if err := svc.AppendBatch(r.Context(), id, req); err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, models.IngestBatchResult{OK: true})
	}
}

// NewIngestFinishHandler returns an http.HandlerFunc for
// POST /api/v1/ingest/{documentID}/finish. It is also the retry entry point
// for failed and stuck documents.
func NewIngestFinishHandler(svc Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := documentID(w, r)
		if !ok {
			return
		}
		res, err := svc.Finish(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewIngestDocxHandler returns an http.HandlerFunc for POST /api/v1/ingest/docx.
func NewIngestDocxHandler(svc Ingestor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.IngestStartRequest
		if !decodeJSON(w, r, defaultBodyLimit, &req) {
			return
		}
		if !validTitle(w, req.Title) {
			return
		}
		if req.FilePath == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "filePath is required", nil)
			return
		}

		res, err := svc.IngestDocx(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

const maxTitleLen = 500

func validTitle(w http.ResponseWriter, title string) bool {
	switch {
	case strings.TrimSpace(title) == "":
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "title is required", nil)
		return false
	case len(title) > maxTitleLen:
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("title must be at most %d bytes", maxTitleLen), nil)
		return false
	}
	return true
}
