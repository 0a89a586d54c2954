package utils

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/apperrors"
)

// RespondSuccess writes the standard success envelope.
func RespondSuccess(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RespondError translates a typed failure into the stable error envelope.
// Internal causes are logged here and never serialized.
func RespondError(c *fiber.Ctx, err error) error {
	app := apperrors.From(err)
	if app.HTTPStatus >= fiber.StatusInternalServerError {
		log.Printf("❌ [%s] %s %s: %v", app.Code, c.Method(), c.Path(), app)
	}
	return c.Status(app.HTTPStatus).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":        app.Code,
			"message":     app.Message,
			"userMessage": app.UserMessage,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
