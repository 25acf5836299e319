// Package apiclient is the ingestion client's view of the docingest API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/retry"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

// Client is the set of API operations the ingestion pipeline depends on.
type Client interface {
	UploadURL(ctx context.Context, filename, contentType string) (*models.UploadTarget, error)
	DeleteUpload(ctx context.Context, path string) error

	IngestText(ctx context.Context, req models.IngestTextRequest) (*models.IngestResult, error)
	IngestStart(ctx context.Context, req models.IngestStartRequest) (uuid.UUID, error)
	IngestBatch(ctx context.Context, documentID uuid.UUID, req models.IngestBatchRequest) error
	IngestFinish(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error)
	IngestDocx(ctx context.Context, req models.IngestStartRequest) (*models.IngestResult, error)

	Process(ctx context.Context, documentID uuid.UUID) (*models.ProcessResult, error)
	ProcessJob(ctx context.Context) (*models.JobResult, error)
	OCRBatch(ctx context.Context, pages []models.PageImage) (string, error)

	ListDocuments(ctx context.Context) ([]models.DocumentView, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentView, error)
}

// HTTPClient implements Client over the JSON API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
	retry     retry.Policy
}

type Option func(*HTTPClient)

func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) { c.userAgent = ua }
}

// WithRetryPolicy overrides the policy used for idempotent calls. The
// retryable predicate is always IsRetryable.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *HTTPClient) {
		p.Retryable = IsRetryable
		c.retry = p
	}
}

// NewHTTPClient creates a client for the API rooted at baseURL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		retry:   retry.DefaultPolicy(IsRetryable),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Uploads ---

func (c *HTTPClient) UploadURL(ctx context.Context, filename, contentType string) (*models.UploadTarget, error) {
	var out models.UploadTarget
	err := c.do(ctx, http.MethodPost, "/api/v1/uploads",
		models.UploadURLRequest{Filename: filename, ContentType: contentType}, &out)
	if err != nil {
		return nil, fmt.Errorf("get upload url: %w", err)
	}
	if out.SignedURL == "" || out.Path == "" {
		return nil, fmt.Errorf("get upload url: %w: empty signed url", ErrInvalidResponse)
	}
	return &out, nil
}

func (c *HTTPClient) DeleteUpload(ctx context.Context, path string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/uploads", models.DeleteUploadRequest{Path: path}, nil); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// --- Ingestion ---

// IngestText is not retried: a lost response would create a second document.
func (c *HTTPClient) IngestText(ctx context.Context, req models.IngestTextRequest) (*models.IngestResult, error) {
	var out models.IngestResult
	if err := c.once(ctx, http.MethodPost, "/api/v1/ingest/text", req, &out); err != nil {
		return nil, fmt.Errorf("ingest text: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) IngestStart(ctx context.Context, req models.IngestStartRequest) (uuid.UUID, error) {
	var out models.IngestStartResult
	if err := c.once(ctx, http.MethodPost, "/api/v1/ingest/start", req, &out); err != nil {
		return uuid.Nil, fmt.Errorf("ingest start: %w", err)
	}
	if out.DocumentID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("ingest start: %w: missing documentId", ErrInvalidResponse)
	}
	return out.DocumentID, nil
}

// IngestBatch is retried; the API accepts a resend of the last stored batch.
func (c *HTTPClient) IngestBatch(ctx context.Context, documentID uuid.UUID, req models.IngestBatchRequest) error {
	var out models.IngestBatchResult
	path := fmt.Sprintf("/api/v1/ingest/%s/batches", documentID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return fmt.Errorf("ingest batch %d/%d: %w", req.BatchIndex, req.TotalBatches, err)
	}
	if !out.OK {
		return fmt.Errorf("ingest batch %d/%d: %w: not acknowledged", req.BatchIndex, req.TotalBatches, ErrInvalidResponse)
	}
	return nil
}

func (c *HTTPClient) IngestFinish(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error) {
	var out models.IngestResult
	path := fmt.Sprintf("/api/v1/ingest/%s/finish", documentID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("ingest finish: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) IngestDocx(ctx context.Context, req models.IngestStartRequest) (*models.IngestResult, error) {
	var out models.IngestResult
	if err := c.once(ctx, http.MethodPost, "/api/v1/ingest/docx", req, &out); err != nil {
		return nil, fmt.Errorf("ingest docx: %w", err)
	}
	return &out, nil
}

// --- Background processing ---

func (c *HTTPClient) Process(ctx context.Context, documentID uuid.UUID) (*models.ProcessResult, error) {
	var out models.ProcessResult
	path := fmt.Sprintf("/api/v1/documents/%s/process", documentID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("process document: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) ProcessJob(ctx context.Context) (*models.JobResult, error) {
	var out models.JobResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/process", nil, &out); err != nil {
		return nil, fmt.Errorf("process job: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) OCRBatch(ctx context.Context, pages []models.PageImage) (string, error) {
	var out models.OCRBatchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/ocr/batch", models.OCRBatchRequest{PageImages: pages}, &out); err != nil {
		return "", fmt.Errorf("ocr batch: %w", err)
	}
	return out.ExtractedText, nil
}

// --- Documents ---

func (c *HTTPClient) ListDocuments(ctx context.Context) ([]models.DocumentView, error) {
	var out []models.DocumentView
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents", nil, &out); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) GetDocument(ctx context.Context, id uuid.UUID) (*models.DocumentView, error) {
	var out models.DocumentView
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+id.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &out, nil
}

// --- transport ---

// do sends an idempotent request, retrying transient failures.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context, _ int) error {
		return c.once(ctx, method, path, in, out)
	})
}

func (c *HTTPClient) once(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req, in != nil)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(b, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

var _ Client = (*HTTPClient)(nil)
