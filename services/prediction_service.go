// services/prediction_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
	"prediction-bet-system/utils"
)

// predictionFreshness is how long a generated prediction is served before a
// new one is derived from the latest market snapshot.
const predictionFreshness = 15 * time.Minute

type PredictionService struct {
	DB *gorm.DB
}

func NewPredictionService(db *gorm.DB) *PredictionService {
	return &PredictionService{DB: db}
}

func (s *PredictionService) GetByID(id string) (*models.AIPrediction, error) {
	var prediction models.AIPrediction
	if err := s.DB.First(&prediction, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("prediction")
		}
		return nil, apperrors.Internal(err)
	}
	return &prediction, nil
}

// GetOrGenerate returns the freshest prediction for a token, deriving a new
// one from the cached market row when the last one has gone stale. The
// market table is read-mostly and allowed to be stale here; nothing
// payment-related depends on this path.
func (s *PredictionService) GetOrGenerate(tokenAddress string) (*models.AIPrediction, error) {
	addr := strings.ToLower(strings.TrimSpace(tokenAddress))

	var latest models.AIPrediction
	err := s.DB.Where("token_address = ?", addr).
		Order("created_at DESC").
		First(&latest).Error
	if err == nil && time.Now().UTC().Before(latest.ExpiresAt) {
		return &latest, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err)
	}

	var market models.TokenMarket
	if err := s.DB.First(&market, "address = ?", addr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("market")
		}
		return nil, apperrors.Internal(err)
	}

	prediction := s.derive(&market)
	if err := s.DB.Create(prediction).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	log.Printf("🔮 [PREDICTION] %s %s conf=%.1f target=%.8f", prediction.TokenSymbol, prediction.Direction, prediction.Confidence, prediction.TargetPrice24)
	return prediction, nil
}

// derive blends 24h momentum with the sentiment score into a direction and
// confidence. Deterministic for a given market snapshot.
func (s *PredictionService) derive(market *models.TokenMarket) *models.AIPrediction {
	momentum := math.Max(-1, math.Min(1, market.Change24h/25))
	score := 0.6*momentum + 0.4*market.SentimentScore

	direction := models.BetDirectionBullish
	if score < 0 {
		direction = models.BetDirectionBearish
	}

	confidence := math.Round((50+math.Abs(score)*45)*100) / 100
	if confidence > 95 {
		confidence = 95
	}

	move := math.Abs(score) * 0.15
	target := market.PriceUSD * (1 + move)
	if direction == models.BetDirectionBearish {
		target = market.PriceUSD * (1 - move)
	}

	now := time.Now().UTC()
	return &models.AIPrediction{
		ID:            uuid.NewString(),
		TokenAddress:  market.Address,
		TokenSymbol:   market.Symbol,
		Direction:     direction,
		Confidence:    confidence,
		TargetPrice24: target,
		EntryPrice:    market.PriceUSD,
		Rationale: fmt.Sprintf(
			"24h change %.2f%%, sentiment %.2f → %s bias",
			market.Change24h, market.SentimentScore, direction,
		),
		ExpiresAt: now.Add(predictionFreshness),
	}
}

// RefreshAll regenerates stale predictions for every tracked market. Run by
// the scheduler; failures are logged per token and never abort the batch.
func (s *PredictionService) RefreshAll() {
	var markets []models.TokenMarket
	if err := s.DB.Find(&markets).Error; err != nil {
		log.Printf("❌ [PREDICTION] Refresh query failed: %v", err)
		return
	}
	for _, market := range markets {
		if _, err := s.GetOrGenerate(market.Address); err != nil {
			log.Printf("❌ [PREDICTION] Refresh failed for %s: %v", market.Symbol, err)
		}
	}
}

// --- HTTP handlers ---

// GetPredictionHandler handles GET /api/predictions/:tokenAddress
func (s *PredictionService) GetPredictionHandler(c *fiber.Ctx) error {
	prediction, err := s.GetOrGenerate(c.Params("tokenAddress"))
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.RespondSuccess(c, fiber.StatusOK, prediction)
}
