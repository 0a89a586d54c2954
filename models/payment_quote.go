package models

import "time"

// QuoteStatus transitions are monotonic: quoted → paid or quoted → expired.
type QuoteStatus string

const (
	QuoteStatusQuoted  QuoteStatus = "quoted"
	QuoteStatusPaid    QuoteStatus = "paid"
	QuoteStatusExpired QuoteStatus = "expired"
)

// PaymentQuote is a time-bounded payment obligation. TxHash carries a
// storage-level unique index: one on-chain transaction can ever be credited
// to at most one quote, even if two confirms race past the pre-check.
type PaymentQuote struct {
	ID          string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserAddress *string     `gorm:"type:varchar(128);index" json:"user_address,omitempty"`
	Direction   string      `gorm:"type:varchar(8);not null" json:"direction"` // buy | sell
	OrderType   string      `gorm:"type:varchar(16);not null" json:"order_type"`
	LimitPrice  *float64    `gorm:"type:decimal(18,6)" json:"limit_price,omitempty"`
	Shares      float64     `gorm:"type:decimal(18,6);not null" json:"shares"`
	Token       string      `gorm:"type:varchar(16);not null" json:"token"`
	Amount      float64     `gorm:"type:decimal(18,6);not null" json:"amount"`
	Spender     string      `gorm:"type:varchar(128);not null" json:"spender"`
	Deadline    time.Time   `gorm:"not null" json:"deadline"`
	ChainID     int64       `gorm:"not null" json:"chain_id"`
	TxFrom      string      `gorm:"type:varchar(128)" json:"tx_from"`
	TxTo        string      `gorm:"type:varchar(128)" json:"tx_to"`
	TxData      string      `gorm:"type:text" json:"tx_data"`
	TxValue     string      `gorm:"type:varchar(80)" json:"tx_value"`
	Status      QuoteStatus `gorm:"type:varchar(16);not null;default:'quoted';index" json:"status"`
	TxHash      *string     `gorm:"type:varchar(128);uniqueIndex" json:"tx_hash,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentQuote) TableName() string {
	return "payment_quotes"
}

// UnsignedTx is the pre-filled transaction descriptor returned to clients.
type UnsignedTx struct {
	ChainID int64  `json:"chainId"`
	From    string `json:"from"`
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`
}

func (q *PaymentQuote) UnsignedTx() UnsignedTx {
	return UnsignedTx{
		ChainID: q.ChainID,
		From:    q.TxFrom,
		To:      q.TxTo,
		Data:    q.TxData,
		Value:   q.TxValue,
	}
}
