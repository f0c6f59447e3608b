/*
scheduler.go - Automated month-end payroll close

PURPOSE:
  Periodically checks whether the previous month has a closed payroll run
  and, if not, computes it and stores the results as an immutable snapshot.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Skips months that already have a run
  - Attendance or holiday edits delete the affected months' runs
    (see Handler.invalidate), so the next tick recloses them

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPayrollScheduler(store, payrollService)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ClosePayroll endpoint (manual close)
  - payroll/service.go: Month computation
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/warp/attendance-engine/payroll"
	"github.com/warp/attendance-engine/store/sqlite"
)

// PayrollScheduler closes the previous month's payroll automatically.
type PayrollScheduler struct {
	Store         *sqlite.Store
	Payroll       *payroll.Service
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayrollScheduler creates a new scheduler.
func NewPayrollScheduler(store *sqlite.Store, svc *payroll.Service) *PayrollScheduler {
	return &PayrollScheduler{
		Store:         store,
		Payroll:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run(ps.ticker, ps.stop)

	log.Printf("[Scheduler] Started with check interval: %v", ps.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker == nil {
		return
	}
	ps.ticker.Stop()
	close(ps.stop)
	ps.wg.Wait()
	ps.ticker = nil
	log.Println("[Scheduler] Stopped")
}

func (ps *PayrollScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ps.wg.Done()

	// Run immediately on start
	ps.closePreviousMonth(context.Background())

	for {
		select {
		case <-ticker.C:
			ps.closePreviousMonth(context.Background())
		case <-stop:
			return
		}
	}
}

// closePreviousMonth closes the month before now unless it already has a
// run. It returns true when a new run was stored.
func (ps *PayrollScheduler) closePreviousMonth(ctx context.Context) bool {
	now := ps.now()
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	year, month := prev.Year(), prev.Month()

	_, err := ps.Store.GetPayrollRun(ctx, year, month)
	if err == nil {
		return false
	}
	if !errors.Is(err, sqlite.ErrPayrollRunNotFound) {
		log.Printf("[Scheduler] Error checking payroll run %04d-%02d: %v", year, int(month), err)
		return false
	}

	run, err := closeMonth(ctx, ps.Store, ps.Payroll, year, month, now)
	if err != nil {
		log.Printf("[Scheduler] Error closing payroll %04d-%02d: %v", year, int(month), err)
		return false
	}

	log.Printf("[Scheduler] Closed payroll %04d-%02d: %d teachers, net %d (run %s)",
		year, int(month), run.Teachers, run.TotalNet, run.ID)
	return true
}

// closeMonth computes a month's payroll and stores it as that month's run,
// replacing any earlier run.
func closeMonth(ctx context.Context, store *sqlite.Store, svc *payroll.Service, year int, month time.Month, now time.Time) (sqlite.PayrollRun, error) {
	mp, err := svc.Month(ctx, year, month)
	if err != nil {
		return sqlite.PayrollRun{}, err
	}

	results, err := json.Marshal(mp.Results)
	if err != nil {
		return sqlite.PayrollRun{}, fmt.Errorf("encode payroll results: %w", err)
	}

	run := sqlite.PayrollRun{
		ID:              ulid.Make().String(),
		Year:            year,
		Month:           month,
		Teachers:        mp.Summary.Teachers,
		TotalComputed:   mp.Summary.TotalComputed,
		TotalDeductions: mp.Summary.TotalDeductions,
		TotalNet:        mp.Summary.TotalNet,
		ResultsJSON:     string(results),
		CreatedAt:       now,
	}
	if err := store.SavePayrollRun(ctx, run); err != nil {
		return sqlite.PayrollRun{}, err
	}
	return run, nil
}
