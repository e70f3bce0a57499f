package rag

import (
	"fmt"
	"strings"

	"conversational-rag/internal/models"
)

func JoinContext(chunks []string) string {
	return strings.Join(chunks, models.ContextSeparator)
}

// ComposePrompt builds the completion prompt. Without context the question
// is sent as is.
func ComposePrompt(question, context string) string {
	if context == "" {
		return question
	}
	return fmt.Sprintf(models.PromptTemplate, models.PromptPreamble, context, question)
}
