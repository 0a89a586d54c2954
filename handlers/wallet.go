package handlers

import (
	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/middleware"
	"prediction-bet-system/services"
)

func SetupWalletRoutes(app *fiber.App, sessions *services.WalletSessionService) {
	api := app.Group("/api/wallet")

	// 🔓 Public: the challenge-response handshake itself
	api.Post("/connect", sessions.Connect)
	api.Post("/verify", sessions.VerifySession)

	// 🔐 Token introspection
	api.Get("/session", middleware.WalletAuthMiddleware(sessions), sessions.Introspect)
}
