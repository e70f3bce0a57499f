package parser

import (
	"fmt"
	"strings"

	"conversational-rag/internal/models"

	"github.com/tmc/langchaingo/schema"
)

// Chunker splits segments into fixed-size chunks, counted in runes, where
// consecutive chunks of one segment share exactly overlap runes.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every segment of one source file. Positions run from 0 across
// all segments. Blank segments are skipped.
func (c *Chunker) Split(source string, segments []schema.Document) []models.Chunk {
	var chunks []models.Chunk
	for i, seg := range segments {
		if strings.TrimSpace(seg.PageContent) == "" {
			continue
		}
		page := pageOf(seg, i+1)
		for _, content := range chunkContent(seg.PageContent, c.size, c.overlap) {
			chunks = append(chunks, models.Chunk{
				Content:  content,
				Source:   source,
				Position: len(chunks),
				Page:     page,
			})
		}
	}
	return chunks
}

// chunkContent splits content into chunks of at most maxChars runes, each
// starting maxChars-overlapChars runes after the previous one. The last chunk
// may be shorter and always ends at the end of content.
func chunkContent(content string, maxChars, overlapChars int) []string {
	runes := []rune(content)
	contentLen := len(runes)
	if contentLen == 0 {
		return nil
	}

	// If content is shorter than maxChars, return it as a single chunk
	if contentLen <= maxChars {
		return []string{content}
	}

	step := maxChars - overlapChars
	chunks := make([]string, 0, (contentLen-overlapChars+step-1)/step)
	for start := 0; ; start += step {
		end := min(start+maxChars, contentLen)
		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}
	}
	return chunks
}

func pageOf(seg schema.Document, fallback int) int {
	switch v := seg.Metadata[models.MetaPage].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
