// services/signature_verifier.go
package services

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"prediction-bet-system/models"
)

// SignatureVerifier checks message signatures for both wallet families.
// Anything that goes wrong inside a verification path — bad encoding, short
// input, library panic — is a plain verification failure, never an error
// with its own shape.
type SignatureVerifier struct{}

func NewSignatureVerifier() *SignatureVerifier {
	return &SignatureVerifier{}
}

func (v *SignatureVerifier) Verify(walletType models.WalletType, address, message, signature string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	switch walletType {
	case models.WalletTypeEVM:
		return v.verifyEVM(address, message, signature)
	case models.WalletTypeSolana:
		return v.verifySolana(address, message, signature)
	default:
		return false
	}
}

// verifyEVM recovers the signer from an EIP-191 personal message signature
// and compares it to the claimed address, case-insensitively.
func (v *SignatureVerifier) verifyEVM(address, message, signature string) bool {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return false
	}

	// Wallets emit V as 27/28, crypto.SigToPub wants 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return strings.EqualFold(recovered.Hex(), address)
}

// verifySolana checks a detached ed25519 signature over the UTF-8 bytes of
// the message. The address itself is the base58-encoded public key.
func (v *SignatureVerifier) verifySolana(address, message, signature string) bool {
	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	pub, err := base58.Decode(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig)
}
