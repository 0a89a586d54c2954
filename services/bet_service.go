// services/bet_service.go
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
	"prediction-bet-system/utils"
)

const (
	minStake = 0.1
	maxStake = 100.0

	betSettlementWindow = 24 * time.Hour
)

type BetService struct {
	DB          *gorm.DB
	Verifier    *PaymentVerifier
	Predictions *PredictionService

	// payee addresses per payment network
	Payees map[string]string

	validate *validator.Validate
}

func NewBetService(db *gorm.DB, verifier *PaymentVerifier, predictions *PredictionService) *BetService {
	payees := map[string]string{
		"base":   os.Getenv("PAYEE_ADDRESS_BASE"),
		"solana": os.Getenv("PAYEE_ADDRESS_SOLANA"),
	}
	return &BetService{
		DB:          db,
		Verifier:    verifier,
		Predictions: predictions,
		Payees:      payees,
		validate:    validator.New(),
	}
}

type PrepareBetRequest struct {
	PredictionID string  `json:"predictionId" validate:"required"`
	TokenAddress string  `json:"tokenAddress" validate:"required"`
	Direction    string  `json:"direction" validate:"required,oneof=bullish bearish"`
	Amount       float64 `json:"amount" validate:"required,gte=0.1,lte=100"`
	Network      string  `json:"network" validate:"omitempty,oneof=base solana"`
}

// PaymentRequired describes what the client must pay out-of-band before the
// bet can be confirmed. Returned with HTTP 402.
type PaymentRequired struct {
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	PayTo      string    `json:"payTo"`
	Network    string    `json:"network"`
	Nonce      string    `json:"nonce"`
	ValidAfter time.Time `json:"validAfter"`
	ValidUntil time.Time `json:"validUntil"`
	Resource   string    `json:"resource"`
}

// ComputeOdds applies the fixed odds rule against the AI snapshot: agreeing
// with a confident prediction pays less (1.5–2.3), betting against it pays
// more (1.8–3.0). Rounded to 2 decimals, fixed at bet creation.
func ComputeOdds(direction, aiDirection models.BetDirection, confidence float64) float64 {
	var odds float64
	if direction == aiDirection {
		odds = 1.5 + (100-confidence)/100*0.8
	} else {
		odds = 1.8 + confidence/100*1.2
	}
	return math.Round(odds*100) / 100
}

func newPaymentNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// PrepareBet validates the stake, snapshots the referenced prediction,
// fixes the odds and persists a pending bet. Validation happens before any
// row is written.
func (s *BetService) PrepareBet(address string, walletType models.WalletType, req *PrepareBetRequest) (*models.Bet, *PaymentRequired, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, apperrors.Validation(err.Error(), "Bet amount must be between 0.1 and 100")
	}
	network := req.Network
	if network == "" {
		network = "base"
	}

	prediction, err := s.Predictions.GetByID(req.PredictionID)
	if err != nil {
		return nil, nil, err
	}

	odds := ComputeOdds(models.BetDirection(req.Direction), prediction.Direction, prediction.Confidence)
	payout := math.Round(req.Amount*odds*100) / 100

	nonce, err := newPaymentNonce()
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	bet := &models.Bet{
		ID:            uuid.NewString(),
		WalletAddress: address,
		WalletType:    walletType,
		PredictionID:  prediction.ID,
		TokenAddress:  req.TokenAddress,
		TokenSymbol:   prediction.TokenSymbol,
		Direction:     models.BetDirection(req.Direction),
		Amount:        req.Amount,
		Currency:      "USDC",

		AIDirection:   prediction.Direction,
		AIConfidence:  prediction.Confidence,
		AITargetPrice: prediction.TargetPrice24,
		AIEntryPrice:  prediction.EntryPrice,

		Odds:            odds,
		PotentialPayout: payout,

		PaymentStatus:  models.PaymentStatusPending,
		PaymentNetwork: network,
		PaymentNonce:   nonce,

		BetStatus: models.BetStatusActive,
		ExpiresAt: now.Add(betSettlementWindow),
	}

	if err := s.DB.Create(bet).Error; err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	required := &PaymentRequired{
		Amount:     bet.Amount,
		Currency:   bet.Currency,
		PayTo:      s.Payees[network],
		Network:    network,
		Nonce:      nonce,
		ValidAfter: now,
		ValidUntil: bet.ExpiresAt,
		Resource:   "/api/bets/confirm",
	}

	log.Printf("🎲 [BET] Prepared %s: %s %.2f %s on %s @ odds %.2f", bet.ID, bet.Direction, bet.Amount, bet.Currency, bet.TokenSymbol, odds)
	return bet, required, nil
}

// ConfirmBet consumes the pending payment state exactly once. The lookup is
// scoped to (id, address): a bet belonging to another wallet is a NotFound,
// never a Forbidden, so ids cannot be probed for existence. A rejected
// proof is terminal — the nonce is considered spent and the bet fails.
func (s *BetService) ConfirmBet(betID, address, paymentProof string) (*models.Bet, error) {
	var bet models.Bet
	if err := s.DB.First(&bet, "id = ? AND wallet_address = ?", betID, address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("bet")
		}
		return nil, apperrors.Internal(err)
	}

	if bet.PaymentStatus != models.PaymentStatusPending {
		return nil, apperrors.Conflict("bet payment already processed", "This bet was already processed; check its status instead of retrying")
	}

	txHash, verifyErr := s.Verifier.Verify(&bet, paymentProof)
	if verifyErr != nil {
		if apperrors.Is(verifyErr, apperrors.CodeUnauthorized) {
			res := s.DB.Model(&models.Bet{}).
				Where("id = ? AND payment_status = ?", bet.ID, models.PaymentStatusPending).
				Update("payment_status", models.PaymentStatusFailed)
			switch {
			case res.Error != nil:
				// The rejection stands either way; the bet stays pending
				// until a later attempt burns the nonce.
				log.Printf("❌ [BET] Failed to record rejected proof for %s: %v", bet.ID, res.Error)
			case res.RowsAffected == 0:
				log.Printf("⚠️ [BET] %s left pending before rejected proof was recorded", bet.ID)
			default:
				log.Printf("🚫 [BET] Payment verification failed for %s", bet.ID)
			}
		}
		return nil, verifyErr
	}

	res := s.DB.Model(&models.Bet{}).
		Where("id = ? AND payment_status = ?", bet.ID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusConfirmed,
			"tx_hash":        txHash,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, apperrors.Conflict("transaction hash already used by another bet", "This transaction was already used for a different payment")
		}
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Conflict("bet payment already processed", "This bet was already processed; check its status instead of retrying")
	}

	bet.PaymentStatus = models.PaymentStatusConfirmed
	bet.TxHash = &txHash
	log.Printf("✅ [BET] Confirmed %s with %s", bet.ID, txHash)
	return &bet, nil
}

func (s *BetService) ListByAddress(address string) ([]models.Bet, error) {
	var bets []models.Bet
	if err := s.DB.Where("wallet_address = ?", address).Order("created_at DESC").Find(&bets).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return bets, nil
}

func (s *BetService) GetByID(betID, address string) (*models.Bet, error) {
	var bet models.Bet
	if err := s.DB.First(&bet, "id = ? AND wallet_address = ?", betID, address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("bet")
		}
		return nil, apperrors.Internal(err)
	}
	return &bet, nil
}

// --- HTTP handlers ---

// PrepareBetHandler handles POST /api/bets/prepare — responds 402 with the
// payment descriptor the client must act on.
func (s *BetService) PrepareBetHandler(c *fiber.Ctx) error {
	address, _ := c.Locals("wallet_address").(string)
	walletType, _ := c.Locals("wallet_type").(models.WalletType)

	var req PrepareBetRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, apperrors.Validation("invalid request body", "Invalid request body"))
	}

	bet, required, err := s.PrepareBet(address, walletType, &req)
	if err != nil {
		return utils.RespondError(c, err)
	}

	return utils.RespondSuccess(c, fiber.StatusPaymentRequired, fiber.Map{
		"betId":           bet.ID,
		"paymentRequired": required,
		"betDetails":      bet,
	})
}

// ConfirmBetHandler handles POST /api/bets/confirm
func (s *BetService) ConfirmBetHandler(c *fiber.Ctx) error {
	address, _ := c.Locals("wallet_address").(string)

	var req struct {
		BetID            string `json:"betId"`
		PaymentSignature string `json:"paymentSignature"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, apperrors.Validation("invalid request body", "Invalid request body"))
	}
	if req.BetID == "" || req.PaymentSignature == "" {
		return utils.RespondError(c, apperrors.Validation("betId and paymentSignature are required", "Bet id and payment signature are required"))
	}

	bet, err := s.ConfirmBet(req.BetID, address, req.PaymentSignature)
	if err != nil {
		return utils.RespondError(c, err)
	}

	return utils.RespondSuccess(c, fiber.StatusOK, fiber.Map{
		"status":          bet.PaymentStatus,
		"txHash":          bet.TxHash,
		"potentialPayout": bet.PotentialPayout,
	})
}

// MyBetsHandler handles GET /api/bets/me
func (s *BetService) MyBetsHandler(c *fiber.Ctx) error {
	address, _ := c.Locals("wallet_address").(string)
	bets, err := s.ListByAddress(address)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.RespondSuccess(c, fiber.StatusOK, bets)
}

// GetBetHandler handles GET /api/bets/:id
func (s *BetService) GetBetHandler(c *fiber.Ctx) error {
	address, _ := c.Locals("wallet_address").(string)
	bet, err := s.GetByID(c.Params("id"), address)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.RespondSuccess(c, fiber.StatusOK, bet)
}
