package models

const (
	ContextSeparator = "\n\n"

	MetaSource   = "source"
	MetaPosition = "position"
	MetaPage     = "page"
)

var (
	PromptPreamble = "Use the following context to answer the question."

	PromptTemplate = `%s

Context:
%s

Question: %s
Answer:`
)
