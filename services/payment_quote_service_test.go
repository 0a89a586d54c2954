package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
)

func newQuoteService(t *testing.T) *PaymentQuoteService {
	t.Helper()
	return &PaymentQuoteService{
		DB:           setupTestDB(t),
		TTL:          600 * time.Second,
		DefaultPrice: decimal.NewFromFloat(0.5),
		Spender:      "0x1111111111111111111111111111111111111111",
		ChainID:      8453,
		TokenAddress: "0x2222222222222222222222222222222222222222",
		validate:     validator.New(),
	}
}

func validHash(seed byte) string {
	return "0x" + strings.Repeat(fmt.Sprintf("%02x", seed), 32)
}

func buyQuoteRequest() *QuoteRequest {
	limit := 0.52
	return &QuoteRequest{
		Direction:  "buy",
		OrderType:  "limit",
		LimitPrice: &limit,
		Shares:     100,
		Token:      "USDC",
	}
}

func TestComputeAmount(t *testing.T) {
	svc := newQuoteService(t)

	// Scenario: 100 shares at limit 0.52 → 52.000000
	limit := 0.52
	if got := svc.ComputeAmount(100, &limit); got != 52.0 {
		t.Errorf("Expected 52.0, got %v", got)
	}

	// Default price fallback
	if got := svc.ComputeAmount(10, nil); got != 5.0 {
		t.Errorf("Expected 5.0 at default price, got %v", got)
	}

	// 6-decimal rounding
	odd := 0.1234567
	if got := svc.ComputeAmount(1, &odd); got != 0.123457 {
		t.Errorf("Expected 0.123457, got %v", got)
	}

	// Never negative
	neg := -1.0
	if got := svc.ComputeAmount(10, &neg); got != 0 {
		t.Errorf("Expected clamp to 0, got %v", got)
	}
}

func TestCreateQuote(t *testing.T) {
	svc := newQuoteService(t)

	quote, err := svc.CreateQuote(buyQuoteRequest())
	if err != nil {
		t.Fatalf("CreateQuote failed: %v", err)
	}
	if quote.Amount != 52.0 {
		t.Errorf("Expected amount 52.0, got %v", quote.Amount)
	}
	if quote.Status != models.QuoteStatusQuoted {
		t.Errorf("Expected status quoted, got %s", quote.Status)
	}
	if remaining := time.Until(quote.Deadline); remaining > 600*time.Second || remaining < 590*time.Second {
		t.Errorf("Expected ~600s deadline, got %v", remaining)
	}

	tx := quote.UnsignedTx()
	if tx.ChainID != 8453 || tx.To != svc.TokenAddress {
		t.Errorf("Unsigned tx descriptor mismatch: %+v", tx)
	}
	if !strings.HasPrefix(tx.Data, "0xa9059cbb") {
		t.Errorf("Calldata should be an ERC20 transfer, got %s", tx.Data)
	}
	// The quote id is appended to the calldata to bind tx and quote.
	if !strings.HasSuffix(tx.Data, fmt.Sprintf("%x", []byte(quote.ID))) {
		t.Error("Calldata should embed the quote id")
	}
}

func TestCreateQuoteValidation(t *testing.T) {
	svc := newQuoteService(t)

	req := buyQuoteRequest()
	req.Shares = 0
	if _, err := svc.CreateQuote(req); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Errorf("Expected Validation for zero shares, got %v", err)
	}

	req = buyQuoteRequest()
	req.Direction = "sideways"
	if _, err := svc.CreateQuote(req); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Errorf("Expected Validation for bad direction, got %v", err)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())
	hash := validHash(0xaa)

	first, err := svc.ConfirmPayment(quote.ID, hash)
	if err != nil {
		t.Fatalf("First confirm failed: %v", err)
	}
	if first.Status != models.QuoteStatusPaid || first.TxHash == nil || *first.TxHash != hash {
		t.Fatalf("Unexpected paid result: %+v", first)
	}

	// Identical resubmission is a success, not an error.
	second, err := svc.ConfirmPayment(quote.ID, hash)
	if err != nil {
		t.Fatalf("Idempotent re-confirm failed: %v", err)
	}
	if *second.TxHash != hash {
		t.Errorf("Re-confirm changed the stored hash: %s", *second.TxHash)
	}

	// A different hash after payment is a conflict.
	if _, err := svc.ConfirmPayment(quote.ID, validHash(0xbb)); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("Expected Conflict for different hash on paid quote, got %v", err)
	}
}

func TestConfirmPaymentHashUniqueness(t *testing.T) {
	svc := newQuoteService(t)
	hash := validHash(0xcc)

	q1, _ := svc.CreateQuote(buyQuoteRequest())
	q2, _ := svc.CreateQuote(buyQuoteRequest())

	if _, err := svc.ConfirmPayment(q1.ID, hash); err != nil {
		t.Fatalf("Confirm on first quote failed: %v", err)
	}

	// The same transaction can never be credited to a second quote.
	if _, err := svc.ConfirmPayment(q2.ID, hash); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("Expected Conflict for reused hash, got %v", err)
	}
}

func TestConfirmPaymentTwoDifferentHashes(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())

	// Two submissions with different hashes: exactly one wins.
	if _, err := svc.ConfirmPayment(quote.ID, validHash(0x01)); err != nil {
		t.Fatalf("First confirm failed: %v", err)
	}
	if _, err := svc.ConfirmPayment(quote.ID, validHash(0x02)); !apperrors.Is(err, apperrors.CodeConflict) {
		t.Errorf("Expected Conflict for losing confirm, got %v", err)
	}

	var stored models.PaymentQuote
	svc.DB.First(&stored, "id = ?", quote.ID)
	if stored.TxHash == nil || *stored.TxHash != validHash(0x01) {
		t.Errorf("Winning hash was overwritten: %v", stored.TxHash)
	}
}

// rivalWrite schedules a one-shot write against payment_quotes that fires
// right after the service's next read of the table, landing in the window
// between ConfirmPayment's read and its conditional update.
func rivalWrite(t *testing.T, db *gorm.DB, query string, args ...interface{}) {
	t.Helper()
	var once sync.Once
	err := db.Callback().Query().After("gorm:query").Register("rival_confirm", func(tx *gorm.DB) {
		if tx.Statement.Table != "payment_quotes" {
			return
		}
		once.Do(func() {
			if err := db.Session(&gorm.Session{NewDB: true}).Exec(query, args...).Error; err != nil {
				t.Errorf("Rival write failed: %v", err)
			}
		})
	})
	if err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}
	t.Cleanup(func() {
		db.Callback().Query().Remove("rival_confirm")
	})
}

func TestConfirmPaymentLosesRaceToDifferentHash(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())
	winner := validHash(0x31)

	// A rival confirm pays the quote after our read but before our update:
	// the conditional update misses and the re-read resolves to Conflict.
	rivalWrite(t, svc.DB,
		"UPDATE payment_quotes SET status = ?, tx_hash = ? WHERE id = ?",
		models.QuoteStatusPaid, winner, quote.ID)

	_, err := svc.ConfirmPayment(quote.ID, validHash(0x32))
	if !apperrors.Is(err, apperrors.CodeConflict) {
		t.Fatalf("Expected Conflict for losing confirm, got %v", err)
	}

	var stored models.PaymentQuote
	svc.DB.First(&stored, "id = ?", quote.ID)
	if stored.TxHash == nil || *stored.TxHash != winner {
		t.Errorf("Winning hash was overwritten: %v", stored.TxHash)
	}
}

func TestConfirmPaymentLosesRaceToSameHash(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())
	hash := validHash(0x33)

	// Duplicate submission of the same payment: whichever copy loses the
	// conditional update must still report success, not Conflict.
	rivalWrite(t, svc.DB,
		"UPDATE payment_quotes SET status = ?, tx_hash = ? WHERE id = ?",
		models.QuoteStatusPaid, hash, quote.ID)

	result, err := svc.ConfirmPayment(quote.ID, hash)
	if err != nil {
		t.Fatalf("Losing duplicate confirm must succeed, got %v", err)
	}
	if result.Status != models.QuoteStatusPaid || result.TxHash == nil || *result.TxHash != hash {
		t.Errorf("Unexpected resolution: %+v", result)
	}
}

func TestConfirmPaymentLosesRaceToExpiry(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())

	// The expiry sweep marks the quote after our read but before our update.
	rivalWrite(t, svc.DB,
		"UPDATE payment_quotes SET status = ? WHERE id = ?",
		models.QuoteStatusExpired, quote.ID)

	_, err := svc.ConfirmPayment(quote.ID, validHash(0x34))
	if !apperrors.Is(err, apperrors.CodeExpired) {
		t.Fatalf("Expected Expired for confirm losing to the sweep, got %v", err)
	}
}

func TestConfirmPaymentExpired(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())

	svc.DB.Model(&models.PaymentQuote{}).
		Where("id = ?", quote.ID).
		Update("deadline", time.Now().UTC().Add(-time.Minute))

	// A perfectly valid hash cannot pay an expired quote.
	if _, err := svc.ConfirmPayment(quote.ID, validHash(0xdd)); !apperrors.Is(err, apperrors.CodeExpired) {
		t.Errorf("Expected Expired, got %v", err)
	}

	var stored models.PaymentQuote
	svc.DB.First(&stored, "id = ?", quote.ID)
	if stored.Status != models.QuoteStatusExpired {
		t.Errorf("Expected lazy transition to expired, got %s", stored.Status)
	}
}

func TestConfirmPaymentPaidBeatsExpiry(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())
	hash := validHash(0xee)

	if _, err := svc.ConfirmPayment(quote.ID, hash); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// Deadline passes after payment: retries with the same hash must keep
	// reporting success, not expiry.
	svc.DB.Model(&models.PaymentQuote{}).
		Where("id = ?", quote.ID).
		Update("deadline", time.Now().UTC().Add(-time.Hour))

	result, err := svc.ConfirmPayment(quote.ID, hash)
	if err != nil {
		t.Fatalf("Retry on paid-then-expired quote failed: %v", err)
	}
	if result.Status != models.QuoteStatusPaid {
		t.Errorf("Expected paid, got %s", result.Status)
	}
}

func TestConfirmPaymentMalformedHash(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())

	for _, hash := range []string{"", "0x123", "deadbeef", "0x" + strings.Repeat("zz", 32)} {
		if _, err := svc.ConfirmPayment(quote.ID, hash); !apperrors.Is(err, apperrors.CodeValidation) {
			t.Errorf("Expected Validation for hash %q, got %v", hash, err)
		}
	}

	// Malformed submissions must not mutate the quote.
	var stored models.PaymentQuote
	svc.DB.First(&stored, "id = ?", quote.ID)
	if stored.Status != models.QuoteStatusQuoted {
		t.Errorf("Quote mutated by malformed hash: %s", stored.Status)
	}
}

func TestConfirmPaymentUnknownQuote(t *testing.T) {
	svc := newQuoteService(t)
	if _, err := svc.ConfirmPayment("missing-id", validHash(0x0f)); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestAssertPaid(t *testing.T) {
	svc := newQuoteService(t)
	quote, _ := svc.CreateQuote(buyQuoteRequest())
	hash := validHash(0x77)

	if _, err := svc.AssertPaid(hash); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("Expected NotFound before payment, got %v", err)
	}

	svc.ConfirmPayment(quote.ID, hash)

	paid, err := svc.AssertPaid(hash)
	if err != nil {
		t.Fatalf("AssertPaid failed after confirm: %v", err)
	}
	if paid.ID != quote.ID {
		t.Errorf("Expected quote %s, got %s", quote.ID, paid.ID)
	}
}
