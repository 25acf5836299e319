package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/docingest/internal/api/middleware"
	"github.com/kiranshivaraju/docingest/internal/api/response"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth        *mw.Auth
	RateLimit   *mw.RateLimit
	CORSOrigins []string

	HealthHandler http.HandlerFunc

	CreateUpload http.HandlerFunc
	DeleteUpload http.HandlerFunc

	IngestText   http.HandlerFunc
	IngestStart  http.HandlerFunc
	IngestBatch  http.HandlerFunc
	IngestFinish http.HandlerFunc
	IngestDocx   http.HandlerFunc
	OCRBatch     http.HandlerFunc

	ProcessDocument http.HandlerFunc
	ProcessJob      http.HandlerFunc

	ListDocuments http.HandlerFunc
	GetDocument   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(deps.CORSOrigins))

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeIngest))

			r.Post("/api/v1/uploads", orNotImplemented(deps.CreateUpload))
			r.Delete("/api/v1/uploads", orNotImplemented(deps.DeleteUpload))

			r.Post("/api/v1/ingest/text", orNotImplemented(deps.IngestText))
			r.Post("/api/v1/ingest/start", orNotImplemented(deps.IngestStart))
			r.Post("/api/v1/ingest/docx", orNotImplemented(deps.IngestDocx))
			r.Post("/api/v1/ingest/{documentID}/batches", orNotImplemented(deps.IngestBatch))
			r.Post("/api/v1/ingest/{documentID}/finish", orNotImplemented(deps.IngestFinish))

			r.Post("/api/v1/ocr/batch", orNotImplemented(deps.OCRBatch))

			r.Post("/api/v1/documents/{documentID}/process", orNotImplemented(deps.ProcessDocument))
			r.Post("/api/v1/jobs/process", orNotImplemented(deps.ProcessJob))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeRead))

			r.Get("/api/v1/documents", orNotImplemented(deps.ListDocuments))
			r.Get("/api/v1/documents/{documentID}", orNotImplemented(deps.GetDocument))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
