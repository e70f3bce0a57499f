package models

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Position int    `json:"position"` // contiguous per source file, starts at 0
	Page     int    `json:"page"`
}

// ChatResponse is returned for a single chat turn. Context holds the preview
// of the retrieved context, not necessarily what was sent to the model.
type ChatResponse struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Response string `json:"response"`
	Context  string `json:"context"`
}
