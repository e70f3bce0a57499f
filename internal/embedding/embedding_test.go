package embedding

import (
	"context"
	"errors"
	"testing"

	"conversational-rag/internal/config"
	"conversational-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.texts = texts
	return s.vectors, s.err
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{1}, s.err
}

func TestEmbedChunks(t *testing.T) {
	stub := &stubEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}}
	chunks := []models.Chunk{{Content: "a"}, {Content: "b"}}

	vectors, err := EmbedChunks(context.Background(), stub, chunks)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stub.texts)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestEmbedChunks_Empty(t *testing.T) {
	vectors, err := EmbedChunks(context.Background(), &stubEmbedder{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedChunks_Failures(t *testing.T) {
	chunks := []models.Chunk{{Content: "a"}, {Content: "b"}}

	boom := errors.New("boom")
	_, err := EmbedChunks(context.Background(), &stubEmbedder{err: boom}, chunks)
	assert.ErrorIs(t, err, boom)

	_, err = EmbedChunks(context.Background(), &stubEmbedder{vectors: [][]float32{{1}}}, chunks)
	assert.Error(t, err)

	_, err = EmbedChunks(context.Background(), &stubEmbedder{vectors: [][]float32{{1}, {}}}, chunks)
	assert.Error(t, err)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(&config.LLMConfig{Provider: "ollama", BaseURL: "http://localhost:11434", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.NotNil(t, e)

	e, err = NewEmbedder(&config.LLMConfig{Provider: "openai", BaseURL: "http://localhost:1/v1", Model: "m", Key: "Bearer k", BatchSize: 8})
	require.NoError(t, err)
	assert.NotNil(t, e)

	_, err = NewEmbedder(&config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)
}
