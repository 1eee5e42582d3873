package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"

	"staffledger/internal/domain/report"
	"staffledger/internal/platform/querier"
)

const (
	JobReportWarm   = "report_warm"
	JobHousekeeping = "housekeeping"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Warmer rebuilds a year report and keeps it cached.
type Warmer interface {
	Refresh(ctx context.Context, year int) (*report.YearReport, error)
}

type Run struct {
	ID          string          `json:"id"`
	Type        string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type Service struct {
	DB       querier.Querier
	Reports  Warmer
	Interval time.Duration
	Location *time.Location
	// HousekeepingSchedule is a five-field cron expression evaluated in Location.
	HousekeepingSchedule string
	Retention            Retention
	queue                chan job
	now                  func() time.Time
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db querier.Querier, reports Warmer, interval time.Duration, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		DB:                   db,
		Reports:              reports,
		Interval:             interval,
		Location:             loc,
		HousekeepingSchedule: DefaultHousekeepingSchedule,
		Retention:            DefaultRetention(),
		queue:                make(chan job, 128),
		now:                  time.Now,
	}
}

// Start runs the queue worker and the cron scheduler until ctx is done. Both
// scheduled jobs are also queued once immediately.
func (s *Service) Start(ctx context.Context) error {
	scheduler, err := s.scheduler()
	if err != nil {
		return err
	}
	go s.worker(ctx)
	s.Enqueue(JobHousekeeping, s.Housekeep)
	if s.Interval > 0 {
		s.Enqueue(JobReportWarm, s.warmCurrentYear)
	}
	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return nil
}

func (s *Service) scheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(s.Location))
	if _, err := c.AddFunc(s.HousekeepingSchedule, func() {
		s.Enqueue(JobHousekeeping, s.Housekeep)
	}); err != nil {
		return nil, fmt.Errorf("housekeeping schedule %q: %w", s.HousekeepingSchedule, err)
	}
	if s.Interval > 0 {
		if _, err := c.AddFunc("@every "+s.Interval.String(), func() {
			s.Enqueue(JobReportWarm, s.warmCurrentYear)
		}); err != nil {
			return nil, fmt.Errorf("report warm interval: %w", err)
		}
	}
	return c, nil
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// WarmYear rebuilds year synchronously and records the run.
func (s *Service) WarmYear(ctx context.Context, year int) (any, error) {
	return s.RunNow(ctx, JobReportWarm, func(ctx context.Context) (any, error) {
		return s.warm(ctx, year)
	})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Type, StatusRunning).Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "details": details}
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) ListRuns(ctx context.Context, jobType string, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE ($1 = '' OR job_type = $1)
    ORDER BY started_at DESC
    LIMIT $2
  `, jobType, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		var details []byte
		if err := row.Scan(&r.ID, &r.Type, &r.Status, &details, &r.StartedAt, &r.CompletedAt); err != nil {
			return Run{}, err
		}
		if len(details) > 0 {
			r.Details = json.RawMessage(details)
		}
		return r, nil
	})
}

func (s *Service) warmCurrentYear(ctx context.Context) (any, error) {
	return s.warm(ctx, s.now().In(s.Location).Year())
}

func (s *Service) warm(ctx context.Context, year int) (any, error) {
	built, err := s.Reports.Refresh(ctx, year)
	if err != nil {
		return map[string]any{"year": year}, err
	}
	return map[string]any{
		"year":      year,
		"employees": len(built.Entries),
		"failed":    len(built.Failures),
		"builtAt":   built.BuiltAt,
	}, nil
}
