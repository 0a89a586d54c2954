package services

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prediction-bet-system/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.WalletSession{},
		&models.PaymentQuote{},
		&models.Bet{},
		&models.AIPrediction{},
		&models.TokenMarket{},
	); err != nil {
		t.Fatalf("Failed to migrate test schema: %v", err)
	}

	return db
}

// testWallet is an EVM wallet able to produce EIP-191 personal signatures.
type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) *testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return &testWallet{
		key:     key,
		address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
	}
}

func (w *testWallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		t.Fatalf("Failed to sign message: %v", err)
	}
	sig[64] += 27 // wallet-style V
	return "0x" + hex.EncodeToString(sig)
}

// solanaTestWallet produces detached ed25519 signatures; the address is the
// base58-encoded public key.
type solanaTestWallet struct {
	priv    ed25519.PrivateKey
	address string
}

func newSolanaTestWallet(t *testing.T) *solanaTestWallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate ed25519 key: %v", err)
	}
	return &solanaTestWallet{priv: priv, address: base58.Encode(pub)}
}

func (w *solanaTestWallet) sign(message string) string {
	return base58.Encode(ed25519.Sign(w.priv, []byte(message)))
}
