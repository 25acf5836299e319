package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/api/response"
	"github.com/kiranshivaraju/docingest/internal/store"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Documents reads documents and drives their background processing.
type Documents interface {
	ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]models.DocumentView, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentView, error)
	ProcessDocument(ctx context.Context, id uuid.UUID) (*models.ProcessResult, error)
	ProcessNextJob(ctx context.Context) (*models.JobResult, error)
}

// NewListDocumentsHandler returns an http.HandlerFunc for GET /api/v1/documents.
func NewListDocumentsHandler(svc Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.DocumentFilter{
			Status:   q.Get("status"),
			Category: q.Get("category"),
			Limit:    defaultListLimit,
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxListLimit {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 200", nil)
				return
			}
			filter.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "offset must be a non-negative integer", nil)
				return
			}
			filter.Offset = n
		}

		docs, err := svc.ListDocuments(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if docs == nil {
			docs = []models.DocumentView{}
		}
		response.JSON(w, docs)
	}
}

// NewGetDocumentHandler returns an http.HandlerFunc for GET /api/v1/documents/{documentID}.
func NewGetDocumentHandler(svc Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := documentID(w, r)
		if !ok {
			return
		}
		doc, err := svc.GetDocument(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, doc)
	}
}

// NewProcessDocumentHandler returns an http.HandlerFunc for
// POST /api/v1/documents/{documentID}/process.
func NewProcessDocumentHandler(svc Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := documentID(w, r)
		if !ok {
			return
		}
		res, err := svc.ProcessDocument(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewProcessJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/process.
func NewProcessJobHandler(svc Documents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.ProcessNextJob(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}
