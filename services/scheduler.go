// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"

	"prediction-bet-system/models"
)

// StartMaintenanceScheduler runs the hygiene jobs. Expiry is already
// enforced lazily at read time; these sweeps only keep the tables tidy and
// the predictions warm. Correctness never depends on them running.
func StartMaintenanceScheduler(db *gorm.DB, predictions *PredictionService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: mark quotes whose deadline has passed.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			res := db.Model(&models.PaymentQuote{}).
				Where("status = ? AND deadline < ?", models.QuoteStatusQuoted, time.Now().UTC()).
				Update("status", models.QuoteStatusExpired)
			if res.Error != nil {
				log.Printf("[Scheduler] Quote expiry sweep failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("🧹 [Scheduler] Expired %d stale quote(s)", res.RowsAffected)
			}
		}),
	)

	// Every 10 minutes: regenerate stale predictions for tracked markets.
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			predictions.RefreshAll()
		}),
	)
}
