package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"workforce/internal/domain/leave"
)

const (
	JobLeaveAccrual  = "leave_accrual"
	JobLeaveBackfill = "leave_backfill"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunStore records job runs. The Postgres implementation writes job_runs.
type RunStore interface {
	StartRun(ctx context.Context, jobType string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
}

type Accruer interface {
	RunPreviousMonth(ctx context.Context) (leave.AccrualSummary, error)
	RunMonthly(ctx context.Context, year int, month time.Month) (leave.AccrualSummary, error)
	BackfillAll(ctx context.Context) (leave.AccrualSummary, error)
}

type Service struct {
	Runs     RunStore
	Accrual  Accruer
	Interval time.Duration
	// OnAccrual, if set, sees every finished accrual batch.
	OnAccrual func(leave.AccrualSummary)
	queue     chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(runs RunStore, accrual Accruer, interval time.Duration) *Service {
	return &Service{
		Runs:     runs,
		Accrual:  accrual,
		Interval: interval,
		queue:    make(chan job, 128),
	}
}

// Start launches the worker and, when an interval is set, the accrual
// scheduler. The first accrual is queued immediately; reruns are no-ops.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Interval > 0 && s.Accrual != nil {
		s.Enqueue(JobLeaveAccrual, s.accrue)
		go s.scheduleAccruals(ctx, s.Interval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// AccrueNow runs the previous month's accrual batch synchronously.
func (s *Service) AccrueNow(ctx context.Context) (leave.AccrualSummary, error) {
	details, err := s.RunNow(ctx, JobLeaveAccrual, s.accrue)
	summary, _ := details.(leave.AccrualSummary)
	return summary, err
}

// AccrueMonth runs one named month's batch synchronously. Rerunning a month
// only reports existing entries.
func (s *Service) AccrueMonth(ctx context.Context, year int, month time.Month) (leave.AccrualSummary, error) {
	return s.runSummary(ctx, JobLeaveAccrual, func(ctx context.Context) (leave.AccrualSummary, error) {
		return s.Accrual.RunMonthly(ctx, year, month)
	})
}

// BackfillNow fills every missing completed month for all active employees.
func (s *Service) BackfillNow(ctx context.Context) (leave.AccrualSummary, error) {
	return s.runSummary(ctx, JobLeaveBackfill, s.Accrual.BackfillAll)
}

func (s *Service) runSummary(ctx context.Context, jobType string, run func(context.Context) (leave.AccrualSummary, error)) (leave.AccrualSummary, error) {
	details, err := s.RunNow(ctx, jobType, func(ctx context.Context) (any, error) {
		summary, err := run(ctx)
		s.observe(summary)
		return summary, err
	})
	summary, _ := details.(leave.AccrualSummary)
	return summary, err
}

func (s *Service) accrue(ctx context.Context) (any, error) {
	summary, err := s.Accrual.RunPreviousMonth(ctx)
	s.observe(summary)
	return summary, err
}

func (s *Service) observe(summary leave.AccrualSummary) {
	if s.OnAccrual != nil {
		s.OnAccrual(summary)
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
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.StartRun(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Runs.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleAccruals(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobLeaveAccrual, s.accrue)
		}
	}
}
