package mock

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/docingest/internal/llm"
)

// Provider satisfies llm.Embedder and llm.Recognizer for testing.
type Provider struct {
	Name_             string
	EmbedFunc         func(ctx context.Context, texts []string) ([][]float32, error)
	RecognizePageFunc func(ctx context.Context, mimeType string, image []byte) (string, error)
}

func (m *Provider) Name() string { return m.Name_ }

func (m *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	return nil, nil
}

func (m *Provider) RecognizePage(ctx context.Context, mimeType string, image []byte) (string, error) {
	if m.RecognizePageFunc != nil {
		return m.RecognizePageFunc(ctx, mimeType, image)
	}
	return "", nil
}

// NewProvider returns a Provider with deterministic default responses:
// vectors of llm.EmbeddingDim whose first component is the text's index, and
// a page transcription naming the image size.
func NewProvider() *Provider {
	return &Provider{
		Name_: "mock",
		EmbedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				v := make([]float32, llm.EmbeddingDim)
				v[0] = float32(i)
				out[i] = v
			}
			return out, nil
		},
		RecognizePageFunc: func(_ context.Context, _ string, image []byte) (string, error) {
			return fmt.Sprintf("texto reconhecido (%d bytes)", len(image)), nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		EmbedFunc: func(_ context.Context, _ []string) ([][]float32, error) {
			return nil, err
		},
		RecognizePageFunc: func(_ context.Context, _ string, _ []byte) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a Provider that blocks until context is cancelled.
func NewTimeoutProvider() *Provider {
	return &Provider{
		Name_: "mock-timeout",
		EmbedFunc: func(ctx context.Context, _ []string) ([][]float32, error) {
			<-ctx.Done()
			return nil, llm.ErrInferenceTimeout
		},
		RecognizePageFunc: func(ctx context.Context, _ string, _ []byte) (string, error) {
			<-ctx.Done()
			return "", llm.ErrInferenceTimeout
		},
	}
}

var (
	_ llm.Embedder   = (*Provider)(nil)
	_ llm.Recognizer = (*Provider)(nil)
)
