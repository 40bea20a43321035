package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/core"
	"workforce/internal/domain/leave"
	"workforce/internal/platform/clock"
	"workforce/internal/storage/memory"
)

func TestAccrualRunnerIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLeaveStore()
	dir := memory.NewDirectory()
	engine := leave.NewEngine(store, clock.NewFixed(date(2025, time.June, 10)), leave.DefaultRates(), time.UTC)

	dir.AddEmployee(agent("a-good", hiredOn(2025, time.January, 6)))
	dir.AddEmployee(core.Employee{ID: "b-bad-role", Role: "intern", HiredDate: hiredOn(2025, time.January, 6), Active: true})
	dir.AddEmployee(agent("c-no-hire-date", nil))
	dir.AddEmployee(core.Employee{ID: "d-manager", Role: "manager", HiredDate: hiredOn(2020, time.March, 1), Active: true})
	dir.AddEmployee(core.Employee{ID: "e-inactive", Role: "agent", HiredDate: hiredOn(2020, time.March, 1)})

	runner := leave.NewAccrualRunner(engine, dir, 2)

	// WHEN May is accrued for everyone
	summary, err := runner.RunMonthly(ctx, 2025, time.May)
	require.NoError(t, err)

	// THEN the bad record is reported and the rest proceed
	assert.Equal(t, 4, summary.Employees)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "b-bad-role", summary.Failures[0].EmployeeID)

	balance, err := engine.Balance(ctx, "d-manager", 2025)
	require.NoError(t, err)
	assertDecimal(t, "1.5", balance)

	// AND a rerun finds the entries already there
	summary, err = runner.RunMonthly(ctx, 2025, time.May)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 2, summary.Existing)
}

func TestAccrualRunnerPreviousMonthAndBackfill(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLeaveStore()
	dir := memory.NewDirectory()
	engine := leave.NewEngine(store, clock.NewFixed(date(2025, time.January, 5)), leave.DefaultRates(), time.UTC)
	dir.AddEmployee(agent("emp-1", hiredOn(2024, time.October, 15)))

	runner := leave.NewAccrualRunner(engine, dir, 0)

	summary, err := runner.RunPreviousMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2024, summary.Year)
	assert.Equal(t, time.December, summary.Month)
	assert.Equal(t, 1, summary.Created)

	summary, err = runner.BackfillAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Failed)

	balance, err := engine.Balance(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assertDecimal(t, "3.75", balance)
}

func TestAccrualRunnerStopsOnCancelledContext(t *testing.T) {
	dir := memory.NewDirectory()
	for _, id := range []string{"a", "b", "c"} {
		dir.AddEmployee(agent(id, hiredOn(2024, time.January, 1)))
	}
	engine := leave.NewEngine(memory.NewLeaveStore(), clock.NewFixed(date(2025, time.June, 10)), leave.DefaultRates(), time.UTC)
	runner := leave.NewAccrualRunner(engine, dir, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.RunMonthly(ctx, 2025, time.May)
	assert.ErrorIs(t, err, context.Canceled)
}
