// services/market_service.go
package services

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
	"prediction-bet-system/utils"
)

// MarketService is the read-only catalog surface. Rows come from the price
// sync worker; stale data is acceptable here.
type MarketService struct {
	DB *gorm.DB
}

func NewMarketService(db *gorm.DB) *MarketService {
	return &MarketService{DB: db}
}

// ListMarketsHandler handles GET /api/markets
func (s *MarketService) ListMarketsHandler(c *fiber.Ctx) error {
	var markets []models.TokenMarket
	if err := s.DB.Order("volume_24h DESC").Limit(100).Find(&markets).Error; err != nil {
		return utils.RespondError(c, apperrors.Internal(err))
	}
	return utils.RespondSuccess(c, fiber.StatusOK, markets)
}

// GetMarketHandler handles GET /api/markets/:symbol
func (s *MarketService) GetMarketHandler(c *fiber.Ctx) error {
	symbol := strings.ToUpper(c.Params("symbol"))

	var market models.TokenMarket
	if err := s.DB.First(&market, "symbol = ?", symbol).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.RespondError(c, apperrors.NotFound("market"))
		}
		return utils.RespondError(c, apperrors.Internal(err))
	}
	return utils.RespondSuccess(c, fiber.StatusOK, market)
}
