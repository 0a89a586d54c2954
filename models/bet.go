package models

import "time"

// PaymentStatus for a bet. pending is consumed exactly once: either by a
// successful confirmation (confirmed) or by a rejected proof (failed).
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusConfirmed  PaymentStatus = "confirmed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// BetStatus is the lifecycle outcome of the bet itself. Everything after
// active is written by the settlement process, not by this service.
type BetStatus string

const (
	BetStatusActive    BetStatus = "active"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
	BetStatusExpired   BetStatus = "expired"
)

type BetDirection string

const (
	BetDirectionBullish BetDirection = "bullish"
	BetDirectionBearish BetDirection = "bearish"
)

// Bet binds a directional stake to an AI prediction snapshot and a payment
// obligation. The prediction fields are copied at creation and never
// recomputed; odds are fixed at that moment.
type Bet struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string       `gorm:"type:varchar(128);not null;index" json:"wallet_address"`
	WalletType    WalletType   `gorm:"type:varchar(16);not null" json:"wallet_type"`
	PredictionID  string       `gorm:"type:uuid;not null" json:"prediction_id"`
	TokenAddress  string       `gorm:"type:varchar(128);not null" json:"token_address"`
	TokenSymbol   string       `gorm:"type:varchar(32)" json:"token_symbol"`
	Direction     BetDirection `gorm:"type:varchar(8);not null" json:"direction"`
	Amount        float64      `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency      string       `gorm:"type:varchar(16);not null" json:"currency"`

	// AI prediction snapshot at bet time
	AIDirection    BetDirection `gorm:"type:varchar(8);not null" json:"ai_direction"`
	AIConfidence   float64      `gorm:"type:decimal(5,2);not null" json:"ai_confidence"`
	AITargetPrice  float64      `gorm:"type:decimal(24,12)" json:"ai_target_price"`
	AIEntryPrice   float64      `gorm:"type:decimal(24,12)" json:"ai_entry_price"`

	Odds            float64 `gorm:"type:decimal(6,2);not null" json:"odds"`
	PotentialPayout float64 `gorm:"type:decimal(18,2);not null" json:"potential_payout"`

	PaymentStatus  PaymentStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"payment_status"`
	PaymentNetwork string        `gorm:"type:varchar(16);not null" json:"payment_network"`
	TxHash         *string       `gorm:"type:varchar(128);uniqueIndex" json:"tx_hash,omitempty"`
	PaymentNonce   string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"payment_nonce"`

	BetStatus BetStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"bet_status"`

	// Settlement fields, written by the external settlement process.
	SettlementPrice  *float64   `gorm:"type:decimal(24,12)" json:"settlement_price,omitempty"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	SettlementTxHash *string    `gorm:"type:varchar(128)" json:"settlement_tx_hash,omitempty"`
	PayoutAmount     *float64   `gorm:"type:decimal(18,2)" json:"payout_amount,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Bet) TableName() string {
	return "bets"
}
