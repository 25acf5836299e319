package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiranshivaraju/docingest/internal/llm"
	"github.com/kiranshivaraju/docingest/internal/llm/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Embed(t *testing.T) {
	p := mock.NewProvider()
	assert.Equal(t, "mock", p.Name())

	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Len(t, v, llm.EmbeddingDim)
		assert.Equal(t, float32(i), v[0])
	}
}

func TestNewProvider_RecognizePage(t *testing.T) {
	text, err := mock.NewProvider().RecognizePage(context.Background(), "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "texto reconhecido (3 bytes)", text)
}

func TestNewFailingProvider(t *testing.T) {
	sentinel := errors.New("boom")
	p := mock.NewFailingProvider(sentinel)

	_, err := p.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, sentinel)

	_, err = p.RecognizePage(context.Background(), "image/png", nil)
	assert.ErrorIs(t, err, sentinel)
}

func TestNewTimeoutProvider(t *testing.T) {
	p := mock.NewTimeoutProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Embed(ctx, []string{"a"})
	assert.ErrorIs(t, err, llm.ErrInferenceTimeout)
}

func TestZeroValue(t *testing.T) {
	var p mock.Provider
	vecs, err := p.Embed(context.Background(), []string{"a"})
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}
