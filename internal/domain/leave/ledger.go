package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"workforce/internal/domain/core"
	"workforce/internal/platform/clock"
)

// EligibilityMonths is how long after hiring credited leave becomes usable.
const EligibilityMonths = 6

// Engine accrues monthly credits and moves them in and out of the ledger.
// Every notion of "now" comes from the injected clock, read in loc.
type Engine struct {
	store Store
	clock clock.Clock
	rates RateTable
	loc   *time.Location
}

func NewEngine(store Store, clk clock.Clock, rates RateTable, loc *time.Location) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: store, clock: clk, rates: rates, loc: loc}
}

// Bind returns a copy of the engine that reads and writes through store,
// typically a transaction-scoped one.
func (e *Engine) Bind(store Store) *Engine {
	bound := *e
	bound.store = store
	return &bound
}

func (e *Engine) Now() time.Time {
	return e.clock.Now().In(e.loc)
}

// Today is the calendar date of Now, with the zone dropped.
func (e *Engine) Today() time.Time {
	return civilDate(e.Now())
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// AccrueMonthly materialises the ledger entry for one completed month. It
// returns nil without error when there is nothing to accrue: no hired date,
// the month has not ended yet, or it precedes the hire month.
func (e *Engine) AccrueMonthly(ctx context.Context, emp core.Employee, year int, month time.Month) (*LedgerEntry, error) {
	res, err := e.Accrue(ctx, emp, year, month)
	if err != nil {
		return nil, err
	}
	return res.Entry, nil
}

func (e *Engine) Accrue(ctx context.Context, emp core.Employee, year int, month time.Month) (AccrualResult, error) {
	if month < time.January || month > time.December {
		return AccrualResult{}, &ValidationError{Field: "month", Reason: fmt.Sprintf("month %d out of range", month)}
	}
	if emp.HiredDate == nil {
		return AccrualResult{}, nil
	}
	end := endOfMonth(year, month, e.loc)
	if e.Now().Before(end) {
		return AccrualResult{}, nil
	}
	hired := *emp.HiredDate
	if monthIndex(year, month) < monthIndex(hired.Year(), hired.Month()) {
		return AccrualResult{}, nil
	}

	tier, err := RoleTier(emp.Role)
	if err != nil {
		return AccrualResult{}, err
	}
	rate, err := e.rates.For(tier)
	if err != nil {
		return AccrualResult{}, err
	}

	entry, created, err := e.store.InsertLedgerEntry(ctx, LedgerEntry{
		EmployeeID:     emp.ID,
		Year:           year,
		Month:          month,
		CreditsEarned:  rate,
		CreditsUsed:    decimal.Zero,
		CreditsBalance: rate,
		AccruedAt:      end,
	})
	if err != nil {
		return AccrualResult{}, fmt.Errorf("accrue %s %d-%02d: %w", emp.ID, year, month, err)
	}
	return AccrualResult{Entry: &entry, Created: created}, nil
}

// BackfillCredits accrues every month from the hire month through the
// current one and returns how many entries were newly created. The current
// month is never complete, so it is skipped by AccrueMonthly.
func (e *Engine) BackfillCredits(ctx context.Context, emp core.Employee) (int, error) {
	if emp.HiredDate == nil {
		return 0, nil
	}
	now := e.Now()
	hired := *emp.HiredDate
	created := 0
	for idx := monthIndex(hired.Year(), hired.Month()); idx <= monthIndex(now.Year(), now.Month()); idx++ {
		year, month := fromMonthIndex(idx)
		res, err := e.Accrue(ctx, emp, year, month)
		if err != nil {
			return created, err
		}
		if res.Created {
			created++
		}
	}
	return created, nil
}

// Balance sums the year's ledger. Credits never carry over between years.
func (e *Engine) Balance(ctx context.Context, employeeID string, year int) (decimal.Decimal, error) {
	return e.store.SumBalance(ctx, employeeID, year)
}

func (e *Engine) Entries(ctx context.Context, employeeID string, year int) ([]LedgerEntry, error) {
	return e.store.LedgerEntries(ctx, employeeID, year)
}

// EligibleFrom is the first day credited leave may be used. ok is false
// when the employee has no hired date.
func (e *Engine) EligibleFrom(emp core.Employee) (from time.Time, ok bool) {
	if emp.HiredDate == nil {
		return time.Time{}, false
	}
	h := *emp.HiredDate
	return time.Date(h.Year(), h.Month()+EligibilityMonths, h.Day(), 0, 0, 0, 0, e.loc), true
}

func (e *Engine) IsEligibleToUse(emp core.Employee) bool {
	from, ok := e.EligibleFrom(emp)
	return ok && !e.Now().Before(from)
}

// checkUsable gates credited leave: the employee must be eligible now and
// the leave must not start before the eligibility date.
func (e *Engine) checkUsable(emp core.Employee, startDate time.Time) error {
	from, ok := e.EligibleFrom(emp)
	if !ok {
		return &NotEligibleError{EmployeeID: emp.ID}
	}
	if !e.IsEligibleToUse(emp) || civilDate(startDate).Before(civilDate(from)) {
		return &NotEligibleError{EmployeeID: emp.ID, EligibleFrom: from}
	}
	return nil
}

// DeductCredits consumes days from the year's ledger, oldest month first.
// The whole amount is planned before anything is written; when the plan
// falls short the ledger is left untouched and the result is incomplete.
func (e *Engine) DeductCredits(ctx context.Context, employeeID string, days decimal.Decimal, year int) (Deduction, error) {
	if !days.IsPositive() {
		return Deduction{}, &ValidationError{Field: "days", Reason: "must be positive"}
	}
	result := Deduction{Requested: days}
	err := e.store.WithTx(ctx, func(tx Store) error {
		entries, err := tx.LockLedgerEntries(ctx, employeeID, year)
		if err != nil {
			return err
		}

		remaining := days
		var plan []Allocation
		for _, entry := range entries {
			result.Available = result.Available.Add(entry.CreditsBalance)
			if remaining.IsZero() || !entry.CreditsBalance.IsPositive() {
				continue
			}
			take := decimal.Min(remaining, entry.CreditsBalance)
			plan = append(plan, Allocation{EntryID: entry.ID, Month: entry.Month, Amount: take})
			remaining = remaining.Sub(take)
		}
		if remaining.IsPositive() {
			result.Shortfall = remaining
			return nil
		}

		byID := indexEntries(entries)
		for _, alloc := range plan {
			entry := byID[alloc.EntryID]
			used := entry.CreditsUsed.Add(alloc.Amount)
			if err := tx.UpdateLedgerUsage(ctx, entry.ID, used, entry.CreditsEarned.Sub(used)); err != nil {
				return err
			}
		}
		result.Applied = days
		result.Allocations = plan
		return nil
	})
	if err != nil {
		return Deduction{Requested: days}, fmt.Errorf("deduct credits: %w", err)
	}
	return result, nil
}

// RestoreCredits gives back up to days, oldest month first, never more than
// an entry has used. Like DeductCredits it is all or nothing.
func (e *Engine) RestoreCredits(ctx context.Context, employeeID string, days decimal.Decimal, year int) (Restoration, error) {
	if !days.IsPositive() {
		return Restoration{}, &ValidationError{Field: "days", Reason: "must be positive"}
	}
	result := Restoration{Requested: days}
	err := e.store.WithTx(ctx, func(tx Store) error {
		entries, err := tx.LockLedgerEntries(ctx, employeeID, year)
		if err != nil {
			return err
		}

		remaining := days
		var plan []Allocation
		for _, entry := range entries {
			result.Restorable = result.Restorable.Add(entry.CreditsUsed)
			if remaining.IsZero() || !entry.CreditsUsed.IsPositive() {
				continue
			}
			give := decimal.Min(remaining, entry.CreditsUsed)
			plan = append(plan, Allocation{EntryID: entry.ID, Month: entry.Month, Amount: give})
			remaining = remaining.Sub(give)
		}
		if remaining.IsPositive() {
			result.Shortfall = remaining
			return nil
		}

		byID := indexEntries(entries)
		for _, alloc := range plan {
			entry := byID[alloc.EntryID]
			used := entry.CreditsUsed.Sub(alloc.Amount)
			if err := tx.UpdateLedgerUsage(ctx, entry.ID, used, entry.CreditsEarned.Sub(used)); err != nil {
				return err
			}
		}
		result.Applied = days
		result.Allocations = plan
		return nil
	})
	if err != nil {
		return Restoration{Requested: days}, fmt.Errorf("restore credits: %w", err)
	}
	return result, nil
}

// Summary backfills any missing months, then reports the year's position.
func (e *Engine) Summary(ctx context.Context, emp core.Employee, year int) (CreditSummary, error) {
	summary := CreditSummary{EmployeeID: emp.ID, Year: year}
	created, err := e.BackfillCredits(ctx, emp)
	if err != nil {
		return summary, err
	}
	summary.Backfilled = created
	if summary.Balance, err = e.Balance(ctx, emp.ID, year); err != nil {
		return summary, err
	}
	if summary.Entries, err = e.Entries(ctx, emp.ID, year); err != nil {
		return summary, err
	}
	if from, ok := e.EligibleFrom(emp); ok {
		summary.EligibleFrom = &from
	}
	summary.Eligible = e.IsEligibleToUse(emp)
	return summary, nil
}

func indexEntries(entries []LedgerEntry) map[string]LedgerEntry {
	byID := make(map[string]LedgerEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}
	return byID
}
