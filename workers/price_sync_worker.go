package workers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prediction-bet-system/models"
	"prediction-bet-system/services"
)

// PriceSyncWorker keeps the token_markets catalog warm from the third-party
// market data provider. The catalog is read-mostly; payment decisions never
// consult it, so a failed poll just leaves slightly stale prices behind.
type PriceSyncWorker struct {
	Client *services.MarketDataClient
	DB     *gorm.DB
}

func NewPriceSyncWorker(db *gorm.DB, client *services.MarketDataClient) *PriceSyncWorker {
	return &PriceSyncWorker{Client: client, DB: db}
}

// PollMarkets runs until ctx is cancelled, upserting the provider snapshot
// on every tick. Bulk upsert keyed on the token address so re-listed tokens
// keep their row and id.
func PollMarkets(ctx context.Context, worker *PriceSyncWorker, pollInterval time.Duration) {
	log.Println("Starting market price polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Market price polling stopped.")
			return
		case <-ticker.C:
			stats, err := worker.Client.FetchTokenStats(ctx)
			if err != nil {
				log.Printf("❌ Error fetching market data: %v", err)
				continue
			}

			if len(stats) == 0 {
				log.Println("➡️ No tokens returned by market data provider.")
				continue
			}

			now := time.Now().UTC()
			markets := make([]models.TokenMarket, 0, len(stats))
			for _, stat := range stats {
				markets = append(markets, models.TokenMarket{
					ID:             uuid.NewString(),
					Symbol:         stat.Symbol,
					Name:           stat.Name,
					Slug:           slug.Make(stat.Name),
					Address:        stat.Address,
					Chain:          stat.Chain,
					PriceUSD:       stat.PriceUSD,
					Change24h:      stat.Change24h,
					Volume24h:      stat.Volume24h,
					MarketCap:      stat.MarketCap,
					SentimentScore: stat.SentimentScore,
					LastSyncedAt:   now,
				})
			}

			if err := worker.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "address"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"symbol",
						"name",
						"slug",
						"chain",
						"price_usd",
						"change_24h",
						"volume_24h",
						"market_cap",
						"sentiment_score",
						"last_synced_at",
						"updated_at",
					}),
				},
			).Create(&markets).Error; err != nil {
				log.Printf("❌ Failed to upsert %d market(s): %v", len(markets), err)
				continue
			}

			log.Printf("📥 Synced %d market(s) from data provider.", len(markets))
		}
	}
}
