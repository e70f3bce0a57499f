package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"conversational-rag/internal/db"
)

var validate = validator.New()

type Validater interface {
	Validate() map[string]string
}

type ChatParams struct {
	UserID  string `json:"user_id" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type UserParams struct {
	UserID      string  `json:"user_id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Company     *string `json:"company"`
	Preferences *string `json:"preferences"`
}

type ConversationParams struct {
	UserID   string `json:"user_id" validate:"required"`
	Message  string `json:"message" validate:"required"`
	Response string `json:"response"`
	Context  string `json:"context"`
}

type DocumentResponse struct {
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

func (p *ChatParams) Validate() map[string]string         { return validateStruct(p) }
func (p *UserParams) Validate() map[string]string         { return validateStruct(p) }
func (p *ConversationParams) Validate() map[string]string { return validateStruct(p) }

func (p *UserParams) ToUser() *db.User {
	return &db.User{
		UserID:      p.UserID,
		Name:        p.Name,
		Email:       p.Email,
		Company:     p.Company,
		Preferences: p.Preferences,
	}
}

func (p *ConversationParams) ToConversation() *db.Conversation {
	return &db.Conversation{
		UserID:   p.UserID,
		Message:  p.Message,
		Response: p.Response,
		Context:  p.Context,
	}
}

func validateStruct(v any) map[string]string {
	if err := validate.Struct(v); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
