package models

import "time"

// WalletType selects the signature family used to prove address ownership.
type WalletType string

const (
	WalletTypeEVM    WalletType = "evm"    // account-based, recoverable secp256k1 signatures
	WalletTypeSolana WalletType = "solana" // public-key-based, detached ed25519 signatures
)

func (t WalletType) Valid() bool {
	return t == WalletTypeEVM || t == WalletTypeSolana
}

// WalletSession is one challenge-response login attempt. Rows are never
// deleted — they are the audit trail for every connect/verify.
type WalletSession struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string     `gorm:"type:varchar(128);not null;index" json:"wallet_address"` // normalized lowercase
	WalletType    WalletType `gorm:"type:varchar(16);not null" json:"wallet_type"`
	ChallengeText string     `gorm:"type:text;not null" json:"challenge_text"`
	Nonce         string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"nonce"`
	Signature     *string    `gorm:"type:text" json:"signature,omitempty"`
	IsVerified    bool       `gorm:"not null;default:false" json:"is_verified"`
	SessionToken  *string    `gorm:"type:text" json:"-"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	ExpiresAt     time.Time  `gorm:"not null" json:"expires_at"`
}

func (WalletSession) TableName() string {
	return "wallet_sessions"
}
