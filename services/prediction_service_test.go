package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
)

func seedMarket(t *testing.T, svc *PredictionService, change24h, sentiment float64) *models.TokenMarket {
	t.Helper()
	market := &models.TokenMarket{
		ID:             uuid.NewString(),
		Symbol:         "DOGE",
		Name:           "Dogecoin",
		Slug:           "dogecoin",
		Address:        "0xmarket0000000000000000000000000000000001",
		Chain:          "base",
		PriceUSD:       0.08,
		Change24h:      change24h,
		Volume24h:      1_000_000,
		SentimentScore: sentiment,
		LastSyncedAt:   time.Now().UTC(),
	}
	if err := svc.DB.Create(market).Error; err != nil {
		t.Fatalf("Failed to seed market: %v", err)
	}
	return market
}

func TestDeriveDirectionAndBounds(t *testing.T) {
	svc := NewPredictionService(setupTestDB(t))

	up := svc.derive(&models.TokenMarket{Symbol: "UP", Address: "0xup", PriceUSD: 1, Change24h: 20, SentimentScore: 0.8})
	if up.Direction != models.BetDirectionBullish {
		t.Errorf("Expected bullish for strong positive momentum, got %s", up.Direction)
	}
	if up.TargetPrice24 <= up.EntryPrice {
		t.Error("Bullish target must exceed entry price")
	}

	down := svc.derive(&models.TokenMarket{Symbol: "DN", Address: "0xdn", PriceUSD: 1, Change24h: -20, SentimentScore: -0.8})
	if down.Direction != models.BetDirectionBearish {
		t.Errorf("Expected bearish for strong negative momentum, got %s", down.Direction)
	}
	if down.TargetPrice24 >= down.EntryPrice {
		t.Error("Bearish target must undercut entry price")
	}

	// Confidence is always within [50, 95], even for extreme inputs.
	for _, change := range []float64{-500, -25, 0, 25, 500} {
		p := svc.derive(&models.TokenMarket{Symbol: "X", Address: "0xx", PriceUSD: 1, Change24h: change, SentimentScore: 1})
		if p.Confidence < 50 || p.Confidence > 95 {
			t.Errorf("Confidence out of bounds for change %v: %v", change, p.Confidence)
		}
	}
}

func TestGetOrGenerateCachesFreshPrediction(t *testing.T) {
	svc := NewPredictionService(setupTestDB(t))
	market := seedMarket(t, svc, 10, 0.5)

	first, err := svc.GetOrGenerate(market.Address)
	if err != nil {
		t.Fatalf("GetOrGenerate failed: %v", err)
	}

	// A fresh prediction is served as-is, not regenerated.
	second, err := svc.GetOrGenerate(market.Address)
	if err != nil {
		t.Fatalf("Second GetOrGenerate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Fresh prediction was regenerated: %s vs %s", first.ID, second.ID)
	}

	// Once stale, a new row is derived; the old one stays for bet references.
	svc.DB.Model(&models.AIPrediction{}).
		Where("id = ?", first.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute))

	third, err := svc.GetOrGenerate(market.Address)
	if err != nil {
		t.Fatalf("Regeneration failed: %v", err)
	}
	if third.ID == first.ID {
		t.Error("Stale prediction should have been replaced")
	}

	var count int64
	svc.DB.Model(&models.AIPrediction{}).Where("token_address = ?", market.Address).Count(&count)
	if count != 2 {
		t.Errorf("Expected both prediction rows retained, got %d", count)
	}
}

func TestGetOrGenerateUnknownMarket(t *testing.T) {
	svc := NewPredictionService(setupTestDB(t))
	if _, err := svc.GetOrGenerate("0xnobody"); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("Expected NotFound for untracked token, got %v", err)
	}
}
