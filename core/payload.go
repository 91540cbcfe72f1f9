package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v against its validate tags and wraps any failure in ErrValidation.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

type TextInput struct {
	Room     string `json:"room" validate:"required"`
	Message  string `json:"message" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type FileInput struct {
	Room     string `json:"room" validate:"required"`
	File     string `json:"file" validate:"required,datauri"`
	Filename string `json:"filename" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type TypingInput struct {
	Room     string `json:"room" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type ReactInput struct {
	MessageID *int64 `json:"messageId" validate:"required"`
	Reaction  string `json:"reaction" validate:"required"`
	Room      string `json:"room" validate:"required"`
}

type PrivateInput struct {
	To        string `json:"to" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Timestamp string `json:"timestamp"`
}

// Outbound payloads.

type Notice struct {
	Type      Kind      `json:"type"`
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingNotice struct {
	Username string `json:"username"`
}

type Reaction struct {
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
}

type Receipt struct {
	MessageID int64 `json:"messageId"`
}

type PrivateMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
