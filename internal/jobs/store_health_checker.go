package jobs

import (
	"context"
	"log"
	"time"

	"taskchat/internal/database"
	"taskchat/internal/services"
)

// StoreHealthChecker pings the database on an interval and publishes
// the result as a gauge so dashboards catch a dead store before users
// do.
type StoreHealthChecker struct {
	db       *database.DB
	interval time.Duration
}

// NewStoreHealthChecker creates a new store health checker
func NewStoreHealthChecker(db *database.DB, interval time.Duration) *StoreHealthChecker {
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	return &StoreHealthChecker{db: db, interval: interval}
}

// Run pings the store and records the outcome
func (j *StoreHealthChecker) Run(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := j.db.PingContext(pingCtx)
	if m := services.GetMetrics(); m != nil {
		m.RecordStoreHealth(err == nil)
	}
	if err != nil {
		log.Printf("❌ [STORE-HEALTH] Database ping failed: %v", err)
		return err
	}
	return nil
}

// GetNextRunTime returns when the job should next run
func (j *StoreHealthChecker) GetNextRunTime() time.Time {
	return time.Now().Add(j.interval)
}
