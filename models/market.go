package models

import "time"

// TokenMarket is a read-mostly catalog row for one tradable meme token.
// Rows are upserted by the price sync worker; the read path may serve a
// stale row, but nothing payment-related ever consults this table.
type TokenMarket struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	Symbol         string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"symbol"`
	Name           string    `gorm:"type:varchar(128);not null" json:"name"`
	Slug           string    `gorm:"type:varchar(160);index" json:"slug"`
	Address        string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"address"`
	Chain          string    `gorm:"type:varchar(32);not null" json:"chain"`
	PriceUSD       float64   `gorm:"type:decimal(24,12)" json:"price_usd"`
	Change24h      float64   `gorm:"type:decimal(10,4)" json:"change_24h"` // percent
	Volume24h      float64   `gorm:"type:decimal(24,2)" json:"volume_24h"`
	MarketCap      float64   `gorm:"type:decimal(24,2)" json:"market_cap"`
	SentimentScore float64   `gorm:"type:decimal(5,4)" json:"sentiment_score"` // -1..1
	LastSyncedAt   time.Time `json:"last_synced_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TokenMarket) TableName() string {
	return "token_markets"
}
