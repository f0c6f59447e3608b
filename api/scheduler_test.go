package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/payroll"
)

func newTestScheduler(t *testing.T, now time.Time) (*testEnv, *PayrollScheduler) {
	t.Helper()
	e := newTestEnv(t)
	e.seedFebruary()

	ps := NewPayrollScheduler(e.store, e.h.Payroll)
	ps.now = func() time.Time { return now }
	return e, ps
}

func TestScheduler_ClosesPreviousMonthOnce(t *testing.T) {
	e, ps := newTestScheduler(t, time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	assert.True(t, ps.closePreviousMonth(ctx))
	assert.False(t, ps.closePreviousMonth(ctx), "second tick must not reclose")

	run, err := e.store.GetPayrollRun(ctx, 2025, time.February)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Teachers)
	assert.Equal(t, int64(48200), run.TotalNet)

	var results []payroll.SalaryResult
	require.NoError(t, json.Unmarshal([]byte(run.ResultsJSON), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		if r.TeacherID == "bob" {
			assert.Equal(t, int64(19200), r.Net())
		}
	}
}

func TestScheduler_JanuaryClosesDecember(t *testing.T) {
	e, ps := newTestScheduler(t, time.Date(2026, time.January, 2, 0, 30, 0, 0, time.UTC))
	ctx := context.Background()

	require.True(t, ps.closePreviousMonth(ctx))
	_, err := e.store.GetPayrollRun(ctx, 2025, time.December)
	assert.NoError(t, err)
}

func TestScheduler_RecloseAfterInvalidation(t *testing.T) {
	e, ps := newTestScheduler(t, time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.True(t, ps.closePreviousMonth(ctx))
	first, err := e.store.GetPayrollRun(ctx, 2025, time.February)
	require.NoError(t, err)

	e.h.invalidate(ctx, calendar.NewDate(2025, time.February, 10))

	require.True(t, ps.closePreviousMonth(ctx))
	second, err := e.store.GetPayrollRun(ctx, 2025, time.February)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestScheduler_StartStop(t *testing.T) {
	e, ps := newTestScheduler(t, time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC))

	ps.Enabled = false
	ps.Start()
	ps.Stop()
	_, err := e.store.GetPayrollRun(context.Background(), 2025, time.February)
	assert.Error(t, err, "disabled scheduler must not run")

	ps.Enabled = true
	ps.CheckInterval = time.Hour
	ps.Start()
	ps.Start()
	ps.Stop()
	ps.Stop()

	// The immediate run on start completes before Stop returns.
	_, err = e.store.GetPayrollRun(context.Background(), 2025, time.February)
	assert.NoError(t, err)
}
