package jobs

import (
	"context"
	"fmt"
	"time"
)

// DefaultHousekeepingSchedule runs housekeeping daily at 03:00.
const DefaultHousekeepingSchedule = "0 3 * * *"

// Retention bounds how long bookkeeping rows are kept. A zero duration keeps
// rows forever.
type Retention struct {
	IdempotencyKeys time.Duration
	JobRuns         time.Duration
}

func DefaultRetention() Retention {
	return Retention{
		IdempotencyKeys: 24 * time.Hour,
		JobRuns:         90 * 24 * time.Hour,
	}
}

// Housekeep deletes idempotency keys and job runs older than the retention
// window. Ledger rows and audit events are never purged.
func (s *Service) Housekeep(ctx context.Context) (any, error) {
	now := s.now()
	details := map[string]any{}
	targets := []struct {
		name   string
		query  string
		window time.Duration
	}{
		{"idempotencyKeys", "DELETE FROM idempotency_keys WHERE created_at < $1", s.Retention.IdempotencyKeys},
		{"jobRuns", "DELETE FROM job_runs WHERE started_at < $1 AND status <> 'running'", s.Retention.JobRuns},
	}
	for _, target := range targets {
		if target.window <= 0 {
			continue
		}
		tag, err := s.DB.Exec(ctx, target.query, now.Add(-target.window))
		if err != nil {
			return details, fmt.Errorf("purge %s: %w", target.name, err)
		}
		details[target.name] = tag.RowsAffected()
	}
	return details, nil
}
