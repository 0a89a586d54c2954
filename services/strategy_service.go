// services/strategy_service.go
package services

import (
	"github.com/gofiber/fiber/v2"

	"prediction-bet-system/utils"
)

// StrategyTemplate is a canned betting strategy surfaced to clients. These
// are static content, not computed per user.
type StrategyTemplate struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	RiskProfile string  `json:"riskProfile"` // conservative | balanced | degen
	Description string  `json:"description"`
	MaxStake    float64 `json:"maxStake"`
	MinOdds     float64 `json:"minOdds"`
}

type StrategyService struct {
	templates []StrategyTemplate
}

func NewStrategyService() *StrategyService {
	return &StrategyService{
		templates: []StrategyTemplate{
			{
				ID:          "follow-the-ai",
				Name:        "Follow the AI",
				RiskProfile: "conservative",
				Description: "Back the AI's call only when confidence is above 80. Lower odds, higher hit rate.",
				MaxStake:    10,
				MinOdds:     1.5,
			},
			{
				ID:          "balanced-momentum",
				Name:        "Balanced Momentum",
				RiskProfile: "balanced",
				Description: "Back the AI on strong momentum tokens, fade it on weak sentiment. Mid-size stakes.",
				MaxStake:    25,
				MinOdds:     1.8,
			},
			{
				ID:          "fade-the-machine",
				Name:        "Fade the Machine",
				RiskProfile: "degen",
				Description: "Bet against high-confidence calls for maximum odds. Expect long losing streaks.",
				MaxStake:    100,
				MinOdds:     2.5,
			},
		},
	}
}

// ListStrategiesHandler handles GET /api/strategies
func (s *StrategyService) ListStrategiesHandler(c *fiber.Ctx) error {
	risk := c.Query("risk")
	if risk == "" {
		return utils.RespondSuccess(c, fiber.StatusOK, s.templates)
	}

	filtered := make([]StrategyTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		if t.RiskProfile == risk {
			filtered = append(filtered, t)
		}
	}
	return utils.RespondSuccess(c, fiber.StatusOK, filtered)
}
