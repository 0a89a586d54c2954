package handlers

import (
	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/middleware"
	"prediction-bet-system/services"
)

func SetupPaymentRoutes(app *fiber.App, quotes *services.PaymentQuoteService, sessions *services.WalletSessionService) {
	// Quotes work anonymously; a known wallet just gets attached as owner.
	api := app.Group("/api/payments", middleware.OptionalWalletAuth(sessions))

	api.Post("/quote", quotes.CreateQuoteHandler)
	api.Post("/confirm", quotes.ConfirmPaymentHandler)
}
