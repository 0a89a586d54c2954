package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced in the error envelope. The transport layer maps
// HTTPStatus; handlers never pick status codes themselves.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeExpired      = "EXPIRED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is the typed failure every service operation raises. Raw
// collaborator errors (store, verifier) are wrapped and never leak into
// responses for payment operations.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	HTTPStatus  int
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(message, userMessage string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, UserMessage: userMessage, HTTPStatus: fiber.StatusBadRequest}
}

func Unauthorized(message, userMessage string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message, UserMessage: userMessage, HTTPStatus: fiber.StatusUnauthorized}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     resource + " not found",
		UserMessage: resource + " not found",
		HTTPStatus:  fiber.StatusNotFound,
	}
}

func Conflict(message, userMessage string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, UserMessage: userMessage, HTTPStatus: fiber.StatusConflict}
}

func Expired(message, userMessage string) *AppError {
	return &AppError{Code: CodeExpired, Message: message, UserMessage: userMessage, HTTPStatus: fiber.StatusGone}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:        CodeInternal,
		Message:     "internal error",
		UserMessage: "Something went wrong, please try again later",
		HTTPStatus:  fiber.StatusInternalServerError,
		Err:         err,
	}
}

// From normalizes any error into an *AppError; unknown errors become
// internal failures.
func From(err error) *AppError {
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	return Internal(err)
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code string) bool {
	var app *AppError
	if errors.As(err, &app) {
		return app.Code == code
	}
	return false
}
