package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"chrono-hq/reaper/pkg/telemetry/metrics"
)

// SchedulerStatus is a snapshot of the scheduler's state.
type SchedulerStatus struct {
	Running bool       `json:"running"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// Scheduler drives full sweeps over all enabled policies on a fixed
// interval. It is an explicitly owned, constructed-once object: the
// process that starts it holds the handle, there is no ambient global.
//
// Guarantees: one sweep runs immediately on Start, at most one sweep is
// in flight at any time, and a tick that fires while a sweep is still
// running is skipped rather than queued.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration
	instr    *metrics.Collector
	logger   *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	// sweepMu is the overlap guard: TryLock on every tick.
	sweepMu sync.Mutex

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with the given sweep interval.
// interval must be positive; the caller-facing default is 6 hours.
func NewScheduler(orch *Orchestrator, interval time.Duration, instr *metrics.Collector) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{
		orch:     orch,
		interval: interval,
		instr:    instr,
		logger:   slog.Default().With("component", "retention.scheduler"),
		cron:     cron.New(),
	}
}

// Start runs one immediate sweep in the background and schedules
// recurring sweeps on the fixed interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	entryID, err := s.cron.AddFunc(spec, func() { s.runSweep(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule sweep %q: %w", spec, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	// Immediate sweep on startup.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSweep(ctx)
	}()

	s.logger.Info("retention scheduler started", "interval", s.interval)
	return nil
}

// runSweep executes one full sweep unless one is already in flight, in
// which case the tick is coalesced away.
func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.sweepMu.TryLock() {
		s.logger.Warn("sweep still running, skipping tick")
		s.instr.RecordSkippedTick()
		return
	}
	defer s.sweepMu.Unlock()

	s.instr.SetSweepRunning(true)
	defer s.instr.SetSweepRunning(false)

	start := time.Now()
	s.logger.Info("starting scheduled sweep")

	results := s.orch.ExecuteAllEnabled(ctx)

	var succeeded, failed, deleted int
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		} else {
			failed++
		}
		deleted += r.SeriesDeleted
	}

	elapsed := time.Since(start)
	s.instr.RecordSweep(elapsed.Seconds(), len(results))

	s.logger.Info("sweep completed",
		"policies", len(results),
		"succeeded", succeeded,
		"failed", failed,
		"series_deleted", deleted,
		"elapsed", elapsed,
	)
}

// Stop cancels the timer and waits for an in-flight sweep to finish.
// It never interrupts a running sweep: tearing down mid-deletion would
// leave partial remote state with no audit entry.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done() // wait for a cron-triggered sweep
	s.wg.Wait()      // wait for the startup sweep

	// Drain the overlap guard so a sweep that was mid-flight is done.
	s.sweepMu.Lock()
	s.sweepMu.Unlock()

	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// Status reports whether the scheduler is running and when the next
// sweep fires.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{Running: s.running}
	if s.running {
		entry := s.cron.Entry(s.entryID)
		if !entry.Next.IsZero() {
			next := entry.Next
			status.NextRun = &next
		}
	}
	return status
}
