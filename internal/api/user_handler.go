package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"conversational-rag/internal/db"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *db.User) error
	UpdateUser(ctx context.Context, u *db.User) error
	GetUser(ctx context.Context, userID string) (*db.User, error)
}

type UserHandler struct {
	store UserStore
}

func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var params UserParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	user := params.ToUser()
	if err := h.store.CreateUser(c.UserContext(), user); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.store.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// HandleUpdateUser replaces the user's mutable fields. The id comes from the
// path; a different user_id in the body is rejected.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")

	var params UserParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if params.UserID == "" {
		params.UserID = id
	}
	if params.UserID != id {
		return ErrIDMismatch(id, params.UserID)
	}
	if errors := params.Validate(); len(errors) > 0 {
		return NewValidationError(errors)
	}

	user := params.ToUser()
	if err := h.store.UpdateUser(c.UserContext(), user); err != nil {
		return err
	}
	return c.JSON(user)
}
