package services

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"

	"prediction-bet-system/models"
)

func TestVerifyEVMSignature(t *testing.T) {
	v := NewSignatureVerifier()
	wallet := newTestWallet(t)
	message := "Sign this message to verify you own wallet " + wallet.address

	sig := wallet.sign(t, message)

	if !v.Verify(models.WalletTypeEVM, wallet.address, message, sig) {
		t.Error("Expected valid EVM signature to verify")
	}

	// Same signature, different claimed address
	other := newTestWallet(t)
	if v.Verify(models.WalletTypeEVM, other.address, message, sig) {
		t.Error("Expected signature to fail for a different address")
	}

	// Same signature, different message
	if v.Verify(models.WalletTypeEVM, wallet.address, message+" tampered", sig) {
		t.Error("Expected signature to fail for a tampered message")
	}
}

func TestVerifyEVMSignatureGarbage(t *testing.T) {
	v := NewSignatureVerifier()
	wallet := newTestWallet(t)

	cases := []string{"", "0x", "not-hex", "0xdeadbeef", wallet.address}
	for _, sig := range cases {
		if v.Verify(models.WalletTypeEVM, wallet.address, "message", sig) {
			t.Errorf("Expected garbage signature %q to fail", sig)
		}
	}
}

func TestVerifySolanaSignature(t *testing.T) {
	v := NewSignatureVerifier()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate ed25519 key: %v", err)
	}
	address := base58.Encode(pub)
	message := "Sign this message to verify you own wallet " + address
	sig := base58.Encode(ed25519.Sign(priv, []byte(message)))

	if !v.Verify(models.WalletTypeSolana, address, message, sig) {
		t.Error("Expected valid solana signature to verify")
	}

	if v.Verify(models.WalletTypeSolana, address, message+"x", sig) {
		t.Error("Expected signature to fail for a tampered message")
	}

	otherPub, _, _ := ed25519.GenerateKey(rand.Reader)
	if v.Verify(models.WalletTypeSolana, base58.Encode(otherPub), message, sig) {
		t.Error("Expected signature to fail for a different public key")
	}

	if v.Verify(models.WalletTypeSolana, address, message, "!!!not-base58!!!") {
		t.Error("Expected non-base58 signature to fail")
	}
}

func TestVerifyUnknownWalletType(t *testing.T) {
	v := NewSignatureVerifier()
	if v.Verify(models.WalletType("bitcoin"), "addr", "msg", "sig") {
		t.Error("Expected unknown wallet type to fail verification")
	}
}
