package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/kiranshivaraju/docingest/internal/config"
	"google.golang.org/api/option"
)

const recognizePrompt = "Transcribe all text visible in this scanned document page exactly as written, " +
	"preserving the original language, accents and paragraph breaks. " +
	"Return only the transcribed text, with no commentary. " +
	"If the page has no text, return an empty response."

// Gemini implements Embedder and Recognizer on the Gemini API.
type Gemini struct {
	client      *genai.Client
	embedModel  string
	visionModel string
	timeout     time.Duration
}

// NewGemini creates a client for the configured models. Close releases it.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		embedModel:  cfg.EmbedModel,
		visionModel: cfg.VisionModel,
		timeout:     cfg.Timeout,
	}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.embedModel }

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Embed sends all texts in one batch request.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	em := g.client.EmbeddingModel(g.embedModel)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify("batch embed", err)
	}
	return vectors(resp, len(texts))
}

func vectors(resp *genai.BatchEmbedContentsResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: %d embeddings for %d texts", ErrInvalidResponse, got, want)
	}
	out := make([][]float32, 0, want)
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) != EmbeddingDim {
			return nil, fmt.Errorf("%w: embedding %d has wrong dimension", ErrInvalidResponse, i)
		}
		out = append(out, e.Values)
	}
	return out, nil
}

// RecognizePage asks the vision model to transcribe one page image.
func (g *Gemini) RecognizePage(ctx context.Context, mimeType string, image []byte) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	model := g.client.GenerativeModel(g.visionModel)
	model.SetTemperature(0)

	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(recognizePrompt))
	if err != nil {
		return "", classify("recognize page", err)
	}
	return candidateText(resp)
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrInferenceTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrProviderUnavailable, err)
}

var (
	_ Embedder   = (*Gemini)(nil)
	_ Recognizer = (*Gemini)(nil)
)
