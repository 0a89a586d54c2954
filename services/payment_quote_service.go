// services/payment_quote_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
	"prediction-bet-system/utils"
)

var evmTxHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// erc20TransferSelector is the 4-byte selector of transfer(address,uint256).
const erc20TransferSelector = "a9059cbb"

type PaymentQuoteService struct {
	DB           *gorm.DB
	TTL          time.Duration
	DefaultPrice decimal.Decimal
	Spender      string
	ChainID      int64
	TokenAddress string // payment token contract the unsigned tx targets

	validate *validator.Validate
}

func NewPaymentQuoteService(db *gorm.DB) *PaymentQuoteService {
	ttl := 600
	if v := os.Getenv("QUOTE_TTL_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	defaultPrice := decimal.NewFromFloat(0.5)
	if v := os.Getenv("DEFAULT_SHARE_PRICE"); v != "" {
		if parsed, err := decimal.NewFromString(v); err == nil {
			defaultPrice = parsed
		}
	}

	chainID := int64(8453) // Base mainnet
	if v := os.Getenv("PAYMENT_CHAIN_ID"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			chainID = parsed
		}
	}

	return &PaymentQuoteService{
		DB:           db,
		TTL:          time.Duration(ttl) * time.Second,
		DefaultPrice: defaultPrice,
		Spender:      os.Getenv("PAYMENT_SPENDER_ADDRESS"),
		ChainID:      chainID,
		TokenAddress: os.Getenv("PAYMENT_TOKEN_ADDRESS"),
		validate:     validator.New(),
	}
}

type QuoteRequest struct {
	Direction   string   `json:"direction" validate:"required,oneof=buy sell"`
	OrderType   string   `json:"orderType" validate:"required,oneof=market limit"`
	LimitPrice  *float64 `json:"limitPrice" validate:"omitempty,gt=0"`
	Shares      float64  `json:"shares" validate:"required,gt=0"`
	Token       string   `json:"token" validate:"required"`
	UserAddress string   `json:"-"`
}

// ComputeAmount derives the payable amount: shares times the limit price
// (or the configured default), rounded to 6 decimal places, never negative.
func (s *PaymentQuoteService) ComputeAmount(shares float64, limitPrice *float64) float64 {
	price := s.DefaultPrice
	if limitPrice != nil {
		price = decimal.NewFromFloat(*limitPrice)
	}
	amount := decimal.NewFromFloat(shares).Mul(price).Round(6)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	f, _ := amount.Float64()
	return f
}

// CreateQuote mints a payment obligation with a deadline of now + TTL.
// The returned unsigned tx is an ERC20 transfer to the spender with the
// quote id appended to the calldata, so the quoted amount and the payment
// the client executes cannot silently diverge.
func (s *PaymentQuoteService) CreateQuote(req *QuoteRequest) (*models.PaymentQuote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation(err.Error(), "Invalid quote request")
	}

	amount := s.ComputeAmount(req.Shares, req.LimitPrice)
	now := time.Now().UTC()

	quote := &models.PaymentQuote{
		ID:         uuid.NewString(),
		Direction:  req.Direction,
		OrderType:  req.OrderType,
		LimitPrice: req.LimitPrice,
		Shares:     req.Shares,
		Token:      strings.ToUpper(req.Token),
		Amount:     amount,
		Spender:    s.Spender,
		Deadline:   now.Add(s.TTL),
		ChainID:    s.ChainID,
		TxTo:       s.TokenAddress,
		TxData:     s.buildTransferCalldata(amount, ""),
		TxValue:    "0x0",
		Status:     models.QuoteStatusQuoted,
	}
	if req.UserAddress != "" {
		addr := strings.ToLower(req.UserAddress)
		quote.UserAddress = &addr
		quote.TxFrom = addr
	}
	quote.TxData = s.buildTransferCalldata(amount, quote.ID)

	if err := s.DB.Create(quote).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	log.Printf("💰 [QUOTE] Created %s for %.6f %s, deadline %s", quote.ID, amount, quote.Token, quote.Deadline.Format(time.RFC3339))
	return quote, nil
}

// buildTransferCalldata encodes transfer(spender, amount) in 6-decimal base
// units, with the quote id appended as extra data to bind tx and quote.
func (s *PaymentQuoteService) buildTransferCalldata(amount float64, quoteID string) string {
	units := decimal.NewFromFloat(amount).Shift(6).Truncate(0).BigInt()
	spender := strings.TrimPrefix(strings.ToLower(s.Spender), "0x")
	if pad := 64 - len(spender); pad > 0 {
		spender = strings.Repeat("0", pad) + spender
	}
	data := fmt.Sprintf("0x%s%s%064x", erc20TransferSelector, spender, units)
	if quoteID != "" {
		data += fmt.Sprintf("%x", []byte(quoteID))
	}
	return data
}

// ConfirmPayment reconciles a client-supplied tx hash with a quote, exactly
// once. Check order is deliberate: already-paid idempotency comes before
// expiry so a paid-then-expired quote keeps reporting success on retry;
// format and uniqueness come last as the rare-failure paths. The final
// transition is a compare-and-swap on status with the unique index on
// tx_hash backstopping the uniqueness pre-check.
func (s *PaymentQuoteService) ConfirmPayment(quoteID, txHash string) (*models.PaymentQuote, error) {
	hash := strings.ToLower(strings.TrimSpace(txHash))

	var quote models.PaymentQuote
	if err := s.DB.First(&quote, "id = ?", quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("quote")
		}
		return nil, apperrors.Internal(err)
	}

	if quote.Status == models.QuoteStatusPaid {
		if quote.TxHash != nil && *quote.TxHash == hash {
			return &quote, nil
		}
		return nil, apperrors.Conflict("quote already paid with a different transaction", "This quote was already paid; check its status instead of retrying")
	}

	now := time.Now().UTC()
	if quote.Status == models.QuoteStatusExpired || now.After(quote.Deadline) {
		// Lazy expiry: mark it on the way out, but only from quoted.
		s.DB.Model(&models.PaymentQuote{}).
			Where("id = ? AND status = ?", quote.ID, models.QuoteStatusQuoted).
			Update("status", models.QuoteStatusExpired)
		return nil, apperrors.Expired("quote deadline passed", "Payment quote expired, please request a new quote")
	}

	if !evmTxHashRe.MatchString(hash) {
		return nil, apperrors.Validation("malformed transaction hash", "Transaction hash format is invalid")
	}

	var clashes int64
	if err := s.DB.Model(&models.PaymentQuote{}).
		Where("tx_hash = ? AND id <> ?", hash, quote.ID).
		Count(&clashes).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if clashes > 0 {
		return nil, apperrors.Conflict("transaction hash already used by another quote", "This transaction was already used for a different payment")
	}

	res := s.DB.Model(&models.PaymentQuote{}).
		Where("id = ? AND status = ?", quote.ID, models.QuoteStatusQuoted).
		Updates(map[string]interface{}{
			"status":  models.QuoteStatusPaid,
			"tx_hash": hash,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, apperrors.Conflict("transaction hash already used by another quote", "This transaction was already used for a different payment")
		}
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race: someone else moved the quote out of quoted between
		// our read and the update. Re-read and resolve.
		var current models.PaymentQuote
		if err := s.DB.First(&current, "id = ?", quote.ID).Error; err != nil {
			return nil, apperrors.Internal(err)
		}
		switch current.Status {
		case models.QuoteStatusPaid:
			if current.TxHash != nil && *current.TxHash == hash {
				return &current, nil
			}
			return nil, apperrors.Conflict("quote already paid with a different transaction", "This quote was already paid; check its status instead of retrying")
		case models.QuoteStatusExpired:
			return nil, apperrors.Expired("quote deadline passed", "Payment quote expired, please request a new quote")
		default:
			return nil, apperrors.Internal(fmt.Errorf("confirm lost update on quote %s in status %s", current.ID, current.Status))
		}
	}

	quote.Status = models.QuoteStatusPaid
	quote.TxHash = &hash
	log.Printf("✅ [QUOTE] %s paid with %s", quote.ID, hash)
	return &quote, nil
}

// AssertPaid looks up a confirmed payment purely by its tx hash. Dependent
// flows use it to gate on payment without touching quote internals.
func (s *PaymentQuoteService) AssertPaid(txHash string) (*models.PaymentQuote, error) {
	hash := strings.ToLower(strings.TrimSpace(txHash))
	var quote models.PaymentQuote
	err := s.DB.First(&quote, "tx_hash = ? AND status = ?", hash, models.QuoteStatusPaid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("confirmed payment")
		}
		return nil, apperrors.Internal(err)
	}
	return &quote, nil
}

// isUniqueViolation matches duplicate-key failures from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// --- HTTP handlers ---

// CreateQuoteHandler handles POST /api/payments/quote
func (s *PaymentQuoteService) CreateQuoteHandler(c *fiber.Ctx) error {
	var req QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, apperrors.Validation("invalid request body", "Invalid request body"))
	}
	if addr, ok := c.Locals("wallet_address").(string); ok {
		req.UserAddress = addr
	}

	quote, err := s.CreateQuote(&req)
	if err != nil {
		return utils.RespondError(c, err)
	}

	return utils.RespondSuccess(c, fiber.StatusOK, fiber.Map{
		"quoteId":    quote.ID,
		"token":      quote.Token,
		"amount":     quote.Amount,
		"spender":    quote.Spender,
		"deadline":   quote.Deadline,
		"unsignedTx": quote.UnsignedTx(),
	})
}

// ConfirmPaymentHandler handles POST /api/payments/confirm
func (s *PaymentQuoteService) ConfirmPaymentHandler(c *fiber.Ctx) error {
	var req struct {
		QuoteID string `json:"quoteId"`
		TxHash  string `json:"txHash"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, apperrors.Validation("invalid request body", "Invalid request body"))
	}
	if req.QuoteID == "" || req.TxHash == "" {
		return utils.RespondError(c, apperrors.Validation("quoteId and txHash are required", "Quote id and transaction hash are required"))
	}

	quote, err := s.ConfirmPayment(req.QuoteID, req.TxHash)
	if err != nil {
		return utils.RespondError(c, err)
	}

	return utils.RespondSuccess(c, fiber.StatusOK, fiber.Map{
		"status": quote.Status,
		"txHash": quote.TxHash,
	})
}
