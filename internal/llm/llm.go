// Package llm wraps the model provider used by the API server: text
// embeddings for chunks and vision recognition for scanned pages.
package llm

import (
	"context"
	"errors"
)

// EmbeddingDim is the vector width of the document_chunks.embedding column.
const EmbeddingDim = 768

var (
	ErrProviderUnavailable = errors.New("model provider unavailable")
	ErrInferenceTimeout    = errors.New("model inference timeout")
	ErrInvalidResponse     = errors.New("model provider returned invalid response")
)

// Embedder computes one vector per input text, in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Recognizer transcribes the text visible in a single page image.
type Recognizer interface {
	RecognizePage(ctx context.Context, mimeType string, image []byte) (string, error)
}
