package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/docingest/internal/api/response"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// Uploads issues presigned upload URLs and removes abandoned uploads.
type Uploads interface {
	CreateUpload(ctx context.Context, filename, contentType string) (*models.UploadTarget, error)
	DeleteUpload(ctx context.Context, key string) error
}

// NewCreateUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
func NewCreateUploadHandler(svc Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UploadURLRequest
		if !decodeJSON(w, r, defaultBodyLimit, &req) {
			return
		}
		if strings.TrimSpace(req.Filename) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "filename is required", nil)
			return
		}
		if req.ContentType == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "contentType is required", nil)
			return
		}

		target, err := svc.CreateUpload(r.Context(), req.Filename, req.ContentType)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, target)
	}
}

// NewDeleteUploadHandler returns an http.HandlerFunc for DELETE /api/v1/uploads.
func NewDeleteUploadHandler(svc Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.DeleteUploadRequest
		if !decodeJSON(w, r, defaultBodyLimit, &req) {
			return
		}
		if req.Path == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "path is required", nil)
			return
		}
		if err := svc.DeleteUpload(r.Context(), req.Path); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}
