package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"conversational-rag/internal/models"
)

type Chatter interface {
	Chat(ctx context.Context, userID, message string) (*models.ChatResponse, error)
}

type ChatHandler struct {
	rag Chatter
}

func NewChatHandler(rag Chatter) *ChatHandler {
	return &ChatHandler{rag: rag}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	resp, err := h.rag.Chat(c.UserContext(), params.UserID, params.Message)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
