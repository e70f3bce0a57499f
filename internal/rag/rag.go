package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"conversational-rag/internal/config"
	"conversational-rag/internal/db"
	"conversational-rag/internal/embedding"
	"conversational-rag/internal/helper"
	"conversational-rag/internal/models"
	"conversational-rag/internal/parser"
)

// VectorIndex is the similarity index the pipeline writes to and reads from.
type VectorIndex interface {
	AddChunks(ctx context.Context, documents []chromem.Document) error
	Search(ctx context.Context, embedding []float32, k int) ([]chromem.Result, error)
	Count() int
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ConversationLogger interface {
	AppendConversation(ctx context.Context, c *db.Conversation) error
}

type RAG struct {
	cfg      *config.RAGConfig
	chunker  *parser.Chunker
	embedder embeddings.Embedder
	index    VectorIndex
	llm      Completer
	convLog  ConversationLogger

	counterOnce sync.Once
	counter     TokenCounter
}

// NewRAG wires the pipeline. llm and convLog may be nil for ingest-only use.
func NewRAG(cfg *config.RAGConfig, embedder embeddings.Embedder, index VectorIndex, llm Completer, convLog ConversationLogger) (*RAG, error) {
	chunker, err := parser.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &RAG{
		cfg:      cfg,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		llm:      llm,
		convLog:  convLog,
	}, nil
}

// Prepare loads and chunks the file at path without touching the index.
func (r *RAG) Prepare(ctx context.Context, path, source string) ([]models.Chunk, error) {
	segments, err := parser.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return r.chunker.Split(source, segments), nil
}

// Ingest adds the chunks of the file at path to the index and returns how
// many were stored. Nothing is stored unless every chunk was embedded.
func (r *RAG) Ingest(ctx context.Context, path, source string) (int, error) {
	chunks, err := r.Prepare(ctx, path, source)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Info().Str("source", source).Msg("No content to index")
		return 0, nil
	}

	vectors, err := embedding.EmbedChunks(ctx, r.embedder, chunks)
	if err != nil {
		return 0, err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		id, err := r.entryID(chunk)
		if err != nil {
			return 0, err
		}
		docs[i] = chromem.Document{
			ID:      id,
			Content: chunk.Content,
			Metadata: map[string]string{
				models.MetaSource:   chunk.Source,
				models.MetaPosition: strconv.Itoa(chunk.Position),
				models.MetaPage:     strconv.Itoa(chunk.Page),
			},
			Embedding: vectors[i],
		}
	}

	if err := r.index.AddChunks(ctx, docs); err != nil {
		return 0, err
	}

	log.Info().
		Str("source", source).
		Int("chunks", len(docs)).
		Int("total", r.index.Count()).
		Msg("Indexed document")
	return len(docs), nil
}

// entryID is random unless dedupe is on, in which case re-ingesting the same
// chunk of the same source overwrites the existing entry.
func (r *RAG) entryID(chunk models.Chunk) (string, error) {
	if !r.cfg.Dedupe {
		return helper.GenerateUUID()
	}
	sum := sha256.Sum256([]byte(chunk.Source + "\x00" + strconv.Itoa(chunk.Position) + "\x00" + chunk.Content))
	return hex.EncodeToString(sum[:]), nil
}

// Retrieve returns up to k chunk texts most similar to query, best first.
// k <= 0 uses the configured top_k. An empty index yields nothing and the
// embedder is not called.
func (r *RAG) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}
	if k <= 0 || r.index.Count() == 0 {
		return nil, nil
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.index.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Content
		log.Debug().
			Str("source", res.Metadata[models.MetaSource]).
			Str("position", res.Metadata[models.MetaPosition]).
			Float32("similarity", res.Similarity).
			Msg("Retrieved chunk")
	}
	return texts, nil
}

// Chat answers message for userID and records the turn. A failed log write
// does not fail the turn.
func (r *RAG) Chat(ctx context.Context, userID, message string) (*models.ChatResponse, error) {
	if r.llm == nil {
		return nil, fmt.Errorf("no inference client configured")
	}

	chunks, err := r.Retrieve(ctx, message, r.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if r.cfg.MaxContextTokens > 0 && len(chunks) > 0 {
		chunks = FitContext(chunks, r.cfg.MaxContextTokens, r.tokenCounter())
	}
	contextText := JoinContext(chunks)

	answer, err := r.llm.Complete(ctx, ComposePrompt(message, contextText))
	if err != nil {
		return nil, err
	}

	if r.convLog != nil {
		err := r.convLog.AppendConversation(ctx, &db.Conversation{
			UserID:   userID,
			Message:  message,
			Response: answer,
			Context:  contextText,
		})
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to log conversation")
		}
	}

	return &models.ChatResponse{
		UserID:   userID,
		Message:  message,
		Response: answer,
		Context:  helper.TruncateRunes(contextText, r.cfg.PreviewChars),
	}, nil
}

func (r *RAG) tokenCounter() TokenCounter {
	r.counterOnce.Do(func() {
		if r.counter == nil {
			r.counter = NewTokenCounter(r.cfg.TokenEncoding)
		}
	})
	return r.counter
}
