package models

import "time"

// AIPrediction is a cached price-direction call for one token. A fresh row
// is generated when the newest one for the token has passed ExpiresAt;
// old rows stay around because bets reference them by id.
type AIPrediction struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	TokenAddress  string       `gorm:"type:varchar(128);not null;index:idx_prediction_token" json:"token_address"`
	TokenSymbol   string       `gorm:"type:varchar(32);not null" json:"token_symbol"`
	Direction     BetDirection `gorm:"type:varchar(8);not null" json:"direction"`
	Confidence    float64      `gorm:"type:decimal(5,2);not null" json:"confidence"` // 50–95
	TargetPrice24 float64      `gorm:"type:decimal(24,12);not null" json:"target_price_24h"`
	EntryPrice    float64      `gorm:"type:decimal(24,12);not null" json:"entry_price"`
	Rationale     string       `gorm:"type:text" json:"rationale"`
	CreatedAt     time.Time    `gorm:"autoCreateTime;index:idx_prediction_token" json:"created_at"`
	ExpiresAt     time.Time    `gorm:"not null" json:"expires_at"`
}

func (AIPrediction) TableName() string {
	return "ai_predictions"
}
