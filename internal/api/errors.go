package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"conversational-rag/internal/models"
)

// ErrorHandler translates handler errors into JSON responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		apiErr   Error
		valErr   ValidationError
		upstream *models.UpstreamError
		fiberErr *fiber.Error
	)

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &valErr):
		return c.Status(valErr.Status).JSON(valErr)
	case errors.As(err, &upstream):
		apiErr = NewError(upstream.Status, upstream.Body)
	case errors.Is(err, models.ErrUnsupportedFormat), errors.Is(err, models.ErrAlreadyExists):
		apiErr = NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		apiErr = NewError(fiber.StatusNotFound, err.Error())
	case errors.As(err, &fiberErr):
		apiErr = NewError(fiberErr.Code, fiberErr.Message)
	default:
		apiErr = NewError(fiber.StatusInternalServerError, err.Error())
	}

	event := log.Warn()
	if apiErr.Code >= fiber.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Int("status", apiErr.Code).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("Request failed")

	return c.Status(apiErr.Code).JSON(apiErr)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidID() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid id given",
	}
}

func ErrMissingFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "multipart field 'file' is required",
	}
}

func ErrIDMismatch(pathID, bodyID string) Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: fmt.Sprintf("user_id %q in body does not match %q in path", bodyID, pathID),
	}
}
