package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"conversational-rag/internal/db"
)

type ConversationStore interface {
	AppendConversation(ctx context.Context, c *db.Conversation) error
	GetConversation(ctx context.Context, id int64) (*db.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]db.Conversation, error)
}

type ConversationHandler struct {
	store ConversationStore
}

func NewConversationHandler(store ConversationStore) *ConversationHandler {
	return &ConversationHandler{store: store}
}

func (h *ConversationHandler) HandleAppend(c *fiber.Ctx) error {
	var params ConversationParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	conv := params.ToConversation()
	if err := h.store.AppendConversation(c.UserContext(), conv); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *ConversationHandler) HandleGet(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return ErrInvalidID()
	}

	conv, err := h.store.GetConversation(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(conv)
}

func (h *ConversationHandler) HandleListForUser(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	convs, err := h.store.ListConversations(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(convs)
}
