// services/payment_verifier.go
package services

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
)

// PaymentVerifier checks the proof a client submits when confirming a bet.
// The proof is a base64 JSON envelope carrying the settlement tx hash and a
// wallet signature over a canonical message that binds the bet's payment
// nonce, amount, currency, network and the hash itself. Verification runs
// through the same per-family signature verifier used at login.
type PaymentVerifier struct {
	Signatures *SignatureVerifier
}

func NewPaymentVerifier(signatures *SignatureVerifier) *PaymentVerifier {
	return &PaymentVerifier{Signatures: signatures}
}

type paymentProof struct {
	TxHash    string `json:"tx_hash"`
	Signature string `json:"signature"`
}

// PaymentMessage is the exact text the wallet must sign. Changing it
// invalidates every in-flight proof, so it is versioned by content.
func PaymentMessage(nonce string, amount float64, currency, network, txHash string) string {
	return fmt.Sprintf(
		"Authorize payment\nnonce: %s\namount: %.2f %s\nnetwork: %s\ntx: %s",
		nonce, amount, currency, network, txHash,
	)
}

// Verify returns the normalized tx hash when the proof is genuine.
func (v *PaymentVerifier) Verify(bet *models.Bet, proofB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(proofB64))
	if err != nil {
		return "", apperrors.Validation("payment proof is not valid base64", "Payment proof is malformed")
	}

	var proof paymentProof
	if err := json.Unmarshal(raw, &proof); err != nil {
		return "", apperrors.Validation("payment proof is not valid JSON", "Payment proof is malformed")
	}
	if proof.TxHash == "" || proof.Signature == "" {
		return "", apperrors.Validation("payment proof missing tx_hash or signature", "Payment proof is malformed")
	}

	hash, err := normalizeTxHash(proof.TxHash, bet.PaymentNetwork)
	if err != nil {
		return "", err
	}

	message := PaymentMessage(bet.PaymentNonce, bet.Amount, bet.Currency, bet.PaymentNetwork, hash)
	if !v.Signatures.Verify(bet.WalletType, bet.WalletAddress, message, proof.Signature) {
		return "", apperrors.Unauthorized("payment signature rejected", "Payment authorization signature is invalid")
	}

	return hash, nil
}

// normalizeTxHash validates the lexical format for the network family and
// returns the canonical form used for storage and uniqueness checks.
func normalizeTxHash(txHash, network string) (string, error) {
	hash := strings.TrimSpace(txHash)
	switch network {
	case "solana":
		// Solana signatures are 64 bytes base58.
		decoded, err := base58.Decode(hash)
		if err != nil || len(decoded) != 64 {
			return "", apperrors.Validation("malformed solana transaction signature", "Transaction hash format is invalid")
		}
		return hash, nil
	default:
		hash = strings.ToLower(hash)
		if !evmTxHashRe.MatchString(hash) {
			return "", apperrors.Validation("malformed transaction hash", "Transaction hash format is invalid")
		}
		return hash, nil
	}
}
