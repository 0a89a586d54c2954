package handlers

import (
	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/middleware"
	"prediction-bet-system/services"
)

func SetupBetRoutes(app *fiber.App, bets *services.BetService, sessions *services.WalletSessionService) {
	// 🔐 Everything bet-related requires a verified wallet session
	api := app.Group("/api/bets", middleware.WalletAuthMiddleware(sessions))

	api.Post("/prepare", bets.PrepareBetHandler)
	api.Post("/confirm", bets.ConfirmBetHandler)
	api.Get("/me", bets.MyBetsHandler)
	api.Get("/:id", bets.GetBetHandler)
}
