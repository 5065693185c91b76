package jobs

import (
	"context"
	"log"
	"time"

	"taskchat/internal/store"
)

// HistoryRetentionJob purges conversation turns older than the
// retention window. The context window the orchestrator reads is hours
// deep; the retention window is days deep, so the purge never touches
// messages a turn could still depend on.
type HistoryRetentionJob struct {
	conversations *store.ConversationStore
	retention     time.Duration
	interval      time.Duration
}

// NewHistoryRetentionJob creates a new retention job
func NewHistoryRetentionJob(conversations *store.ConversationStore, retention time.Duration) *HistoryRetentionJob {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &HistoryRetentionJob{
		conversations: conversations,
		retention:     retention,
		interval:      6 * time.Hour,
	}
}

// Run purges expired messages and their tool-call records
func (j *HistoryRetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.retention)

	purged, err := j.conversations.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if purged > 0 {
		log.Printf("🧹 [RETENTION] Purged %d conversation messages older than %s", purged, j.retention)
	}
	return nil
}

// GetNextRunTime returns when the job should next run
func (j *HistoryRetentionJob) GetNextRunTime() time.Time {
	return time.Now().Add(j.interval)
}
