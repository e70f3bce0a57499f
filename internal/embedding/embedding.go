package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"conversational-rag/internal/config"
	"conversational-rag/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates the embedder selected by LLMconfig.Provider
func NewEmbedder(LLMconfig *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        LLMconfig.Provider,
		"base_url":        LLMconfig.BaseURL,
		"embedding_model": LLMconfig.Model,
	}).Msg("Loaded embedding config")

	var opts []embeddings.Option
	if LLMconfig.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(LLMconfig.BatchSize))
	}

	switch LLMconfig.Provider {
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(LLMconfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(LLMconfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(LLMconfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		return newEmbedder(llm, opts)
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(LLMconfig.BaseURL),
			ollama.WithModel(LLMconfig.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return newEmbedder(llm, opts)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", LLMconfig.Provider)
	}
}

func newEmbedder(client embeddings.EmbedderClient, opts []embeddings.Option) (embeddings.Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedChunks embeds all chunks in one batch. The result is index-aligned
// with chunks; any failure returns no vectors at all.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedder returned an empty vector for chunk %d", i)
		}
	}
	return vectors, nil
}
