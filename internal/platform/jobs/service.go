package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const JobAbsenceSweep = "absence_sweep"

type AbsenceSweeper interface {
	SweepAbsences(ctx context.Context, date string) (int, error)
	Yesterday() string
}

type SweepCounter interface {
	AbsencesMarked(n int)
}

// Service runs background jobs on a single worker and records each run in
// job_runs when a pool is configured.
type Service struct {
	DB       *pgxpool.Pool
	Sweeper  AbsenceSweeper
	Counter  SweepCounter
	Interval time.Duration
	queue    chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, sweeper AbsenceSweeper, interval time.Duration) *Service {
	return &Service{
		DB:       db,
		Sweeper:  sweeper,
		Interval: interval,
		queue:    make(chan job, 16),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Interval > 0 {
		go s.scheduleSweeps(ctx, s.Interval)
	}
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

// SweepAbsences marks absences for date synchronously and records the run.
func (s *Service) SweepAbsences(ctx context.Context, date string) (int, error) {
	marked := 0
	_, err := s.RunNow(ctx, JobAbsenceSweep, s.sweep(date, &marked))
	return marked, err
}

func (s *Service) sweep(date string, marked *int) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		n, err := s.Sweeper.SweepAbsences(ctx, date)
		if marked != nil {
			*marked = n
		}
		if err == nil && s.Counter != nil {
			s.Counter.AbsencesMarked(n)
		}
		return map[string]any{"date": date, "marked": n}, err
	}
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
	var runID int64
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
      INSERT INTO job_runs (job_type, status)
      VALUES ($1,$2)
      RETURNING id
    `, j.Type, "running").Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
		details = map[string]any{"error": err.Error(), "details": details}
	}
	slog.Info("job finished", "jobType", j.Type, "status", status, "details", details)

	if runID == 0 {
		return details, err
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if _, updErr := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); updErr != nil {
		slog.Warn("job run update failed", "err", updErr)
	}
	return details, err
}

// scheduleSweeps closes out the previous day on every tick. The sweep is
// idempotent, so repeated ticks on the same day are harmless.
func (s *Service) scheduleSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobAbsenceSweep, s.sweep(s.Sweeper.Yesterday(), nil))
		}
	}
}
