package workers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"prediction-bet-system/models"
	"prediction-bet-system/utils"
)

// PollSettlementReports archives a CSV of bets that left the active state
// since the previous run. Settlement itself happens in a separate system;
// this worker only preserves the outcomes for audit.
func PollSettlementReports(ctx context.Context, db *gorm.DB, pollInterval time.Duration) {
	if !utils.R2Enabled() {
		log.Println("⚠️  R2 not configured, settlement report archival disabled")
		return
	}
	log.Println("Starting settlement report archival...")

	lastRun := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Settlement report archival stopped.")
			return
		case <-ticker.C:
			runStarted := time.Now().UTC()

			var bets []models.Bet
			err := db.Where("bet_status <> ? AND updated_at > ?", models.BetStatusActive, lastRun).
				Order("updated_at ASC").
				Find(&bets).Error
			if err != nil {
				log.Printf("❌ Settlement report query failed: %v", err)
				continue
			}

			if len(bets) == 0 {
				lastRun = runStarted
				continue
			}

			report, err := buildSettlementCSV(bets)
			if err != nil {
				log.Printf("❌ Failed to build settlement report: %v", err)
				continue
			}

			key := fmt.Sprintf("reports/bets-%s.csv", runStarted.Format("2006-01-02T15-04-05"))
			url, err := utils.UploadBytesToR2(ctx, key, report, "text/csv")
			if err != nil {
				log.Printf("❌ Failed to upload settlement report: %v", err)
				// lastRun not advanced — same window retried next tick
				continue
			}

			lastRun = runStarted
			log.Printf("✅ Archived %d settled bet(s) to %s", len(bets), url)
		}
	}
}

func buildSettlementCSV(bets []models.Bet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{
		"bet_id", "wallet_address", "token_symbol", "direction", "amount",
		"odds", "bet_status", "payout_amount", "settlement_tx_hash", "settled_at",
	}); err != nil {
		return nil, err
	}

	for _, bet := range bets {
		payout := ""
		if bet.PayoutAmount != nil {
			payout = fmt.Sprintf("%.2f", *bet.PayoutAmount)
		}
		settlementTx := ""
		if bet.SettlementTxHash != nil {
			settlementTx = *bet.SettlementTxHash
		}
		settledAt := ""
		if bet.SettledAt != nil {
			settledAt = bet.SettledAt.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{
			bet.ID,
			bet.WalletAddress,
			bet.TokenSymbol,
			string(bet.Direction),
			fmt.Sprintf("%.2f", bet.Amount),
			fmt.Sprintf("%.2f", bet.Odds),
			string(bet.BetStatus),
			payout,
			settlementTx,
			settledAt,
		}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
