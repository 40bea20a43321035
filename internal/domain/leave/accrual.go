package leave

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"workforce/internal/domain/core"
)

type AccrualFailure struct {
	EmployeeID string `json:"employeeId"`
	Error      string `json:"error"`
}

type AccrualSummary struct {
	Year      int              `json:"year,omitempty"`
	Month     time.Month       `json:"month,omitempty"`
	Employees int              `json:"employees"`
	Created   int              `json:"created"`
	Existing  int              `json:"existing"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Failures  []AccrualFailure `json:"failures,omitempty"`
}

// AccrualRunner drives the engine over every active employee with a bounded
// worker pool. One employee's failure is logged and counted, never fatal.
type AccrualRunner struct {
	Engine    *Engine
	Employees core.Directory
	Workers   int
}

func NewAccrualRunner(engine *Engine, employees core.Directory, workers int) *AccrualRunner {
	if workers < 1 {
		workers = 1
	}
	return &AccrualRunner{Engine: engine, Employees: employees, Workers: workers}
}

func (r *AccrualRunner) RunMonthly(ctx context.Context, year int, month time.Month) (AccrualSummary, error) {
	summary := AccrualSummary{Year: year, Month: month}
	err := r.each(ctx, &summary, func(ctx context.Context, emp core.Employee) (created, existing int, err error) {
		res, err := r.Engine.Accrue(ctx, emp, year, month)
		switch {
		case err != nil:
			return 0, 0, err
		case res.Created:
			return 1, 0, nil
		case res.Entry != nil:
			return 0, 1, nil
		default:
			return 0, 0, nil
		}
	})
	return summary, err
}

// RunPreviousMonth accrues the last completed month relative to the clock.
func (r *AccrualRunner) RunPreviousMonth(ctx context.Context) (AccrualSummary, error) {
	now := r.Engine.Now()
	year, month := fromMonthIndex(monthIndex(now.Year(), now.Month()) - 1)
	return r.RunMonthly(ctx, year, month)
}

func (r *AccrualRunner) BackfillAll(ctx context.Context) (AccrualSummary, error) {
	var summary AccrualSummary
	err := r.each(ctx, &summary, func(ctx context.Context, emp core.Employee) (int, int, error) {
		created, err := r.Engine.BackfillCredits(ctx, emp)
		return created, 0, err
	})
	return summary, err
}

func (r *AccrualRunner) each(ctx context.Context, summary *AccrualSummary, fn func(context.Context, core.Employee) (int, int, error)) error {
	employees, err := r.Employees.ListActiveEmployees(ctx)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	summary.Employees = len(employees)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for _, emp := range employees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			created, existing, err := runIsolated(gctx, emp, fn)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("leave accrual failed", "employeeId", emp.ID, "err", err)
				summary.Failed++
				summary.Failures = append(summary.Failures, AccrualFailure{EmployeeID: emp.ID, Error: err.Error()})
				return nil
			}
			summary.Created += created
			summary.Existing += existing
			if created == 0 && existing == 0 {
				summary.Skipped++
			}
			return nil
		})
	}
	err = g.Wait()
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].EmployeeID < summary.Failures[j].EmployeeID
	})
	return err
}

func runIsolated(ctx context.Context, emp core.Employee, fn func(context.Context, core.Employee) (int, int, error)) (created, existing int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx, emp)
}
