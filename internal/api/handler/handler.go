// Package handler implements the HTTP handlers of the ingestion API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/api/response"
	"github.com/kiranshivaraju/docingest/internal/ingestion"
	"github.com/kiranshivaraju/docingest/internal/llm"
	"github.com/kiranshivaraju/docingest/internal/storage"
	"github.com/kiranshivaraju/docingest/internal/store"
)

const (
	defaultBodyLimit = 1 << 20
	// Text limits apply to the decoded string; JSON escaping can make the
	// body several times larger.
	textBodyLimit = 8 << 20
	ocrBodyLimit  = 32 << 20
)

// decodeJSON reads a JSON body of at most limit bytes into v. It writes the
// error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return false
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

// documentID parses the {documentID} URL parameter.
func documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "documentID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors onto the API's error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, store.ErrBatchOutOfOrder),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrDuplicateKey),
		errors.Is(err, ingestion.ErrLocked),
		errors.Is(err, ingestion.ErrIncomplete),
		errors.Is(err, ingestion.ErrNotProcessable):
		response.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ingestion.ErrInvalidBatch),
		errors.Is(err, ingestion.ErrTooManyPages),
		errors.Is(err, ingestion.ErrUnsupportedMedia),
		errors.Is(err, ingestion.ErrEmptyText),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, llm.ErrInvalidDataURL):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, storage.ErrTooLarge):
		response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, llm.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "UPSTREAM_ERROR", "Model inference timed out", nil)
	case errors.Is(err, llm.ErrProviderUnavailable), errors.Is(err, llm.ErrInvalidResponse):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Model provider unavailable", nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
