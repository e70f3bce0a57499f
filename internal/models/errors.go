package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat indicates a file extension no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMalformedResponse indicates the LLM API answered 2xx with an unexpected body.
	ErrMalformedResponse = errors.New("malformed LLM response")

	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

// UpstreamError is returned when the LLM API answers with a non-2xx status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: %d, %s", e.Status, e.Body)
}
