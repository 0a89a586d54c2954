package handlers

import (
	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/services"
)

func SetupMarketRoutes(app *fiber.App, markets *services.MarketService, predictions *services.PredictionService, strategies *services.StrategyService) {
	api := app.Group("/api")

	// 🔓 Public read-only catalog
	api.Get("/markets", markets.ListMarketsHandler)
	api.Get("/markets/:symbol", markets.GetMarketHandler)
	api.Get("/predictions/:tokenAddress", predictions.GetPredictionHandler)
	api.Get("/strategies", strategies.ListStrategiesHandler)
}
