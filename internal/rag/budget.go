package rag

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"conversational-rag/internal/models"
)

type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// runeCounter estimates four runes per token.
type runeCounter struct{}

func (runeCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// NewTokenCounter loads the named tiktoken encoding, falling back to a rune
// based estimate when it cannot be loaded.
func NewTokenCounter(encoding string) TokenCounter {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		log.Warn().Err(err).Str("encoding", encoding).Msg("Token encoding unavailable, estimating from rune count")
		return runeCounter{}
	}
	return tiktokenCounter{enc: enc}
}

// FitContext keeps the best ranked chunks whose joined size stays within
// maxTokens, dropping from the end. If even the first chunk does not fit it
// is cut to the longest prefix that does.
func FitContext(chunks []string, maxTokens int, counter TokenCounter) []string {
	if maxTokens <= 0 || len(chunks) == 0 {
		return chunks
	}

	sep := counter.Count(models.ContextSeparator)
	used := 0
	for i, chunk := range chunks {
		cost := counter.Count(chunk)
		if i > 0 {
			cost += sep
		}
		if used+cost > maxTokens {
			if i == 0 {
				if prefix := fitPrefix(chunk, maxTokens, counter); prefix != "" {
					return []string{prefix}
				}
				return nil
			}
			log.Debug().Int("kept", i).Int("dropped", len(chunks)-i).Int("max_tokens", maxTokens).Msg("Context trimmed to budget")
			return chunks[:i]
		}
		used += cost
	}
	return chunks
}

// fitPrefix binary searches the longest rune prefix of text within maxTokens.
func fitPrefix(text string, maxTokens int, counter TokenCounter) string {
	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter.Count(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
