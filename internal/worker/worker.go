// Package worker contains the background worker that backfills reports for
// completed assignments. The API server builds a report inline when an
// assignment is completed, so under normal operation the sweep finds nothing;
// it exists to catch assignments whose inline build failed, completions that
// raced a crash, and deployments where the reports table was provisioned
// after assignments had already been completed. The worker runs independently
// of HTTP request handling and talks only to the service layer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// maxRunHistory caps how many sweep records the worker keeps in memory.
const maxRunHistory = 50

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"is_running"`
	IsPaused        bool      `json:"is_paused"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	NextRun         time.Time `json:"next_run"`
}

// RunRecord tracks individual sweep runs
type RunRecord struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // Success, Failure
	Details   string        `json:"details"`
}

// Worker periodically finds completed assignments with no stored report and
// builds the missing reports in bounded batches.
type Worker struct {
	assignments   services.AssignmentServiceInterface
	reports       services.ReportServiceInterface
	instance      string
	status        Status
	history       []RunRecord
	mu            sync.RWMutex
	manualTrigger chan bool
	cfg           *config.Config
	logger        *observability.Logger

	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
	cancel  context.CancelFunc
}

// NewWorker creates a new Worker instance
func NewWorker(assignments services.AssignmentServiceInterface, reports services.ReportServiceInterface, instance string, cfg *config.Config, logger *observability.Logger) *Worker {
	if instance == "" {
		instance = "default"
	}

	return &Worker{
		assignments:   assignments,
		reports:       reports,
		instance:      instance,
		status:        Status{CurrentActivity: "Initialized"},
		history:       make([]RunRecord, 0, maxRunHistory),
		manualTrigger: make(chan bool, 1),
		cfg:           cfg,
		logger:        logger,
		timeNow:       time.Now,
	}
}

// Start begins the sweep loop and blocks until ctx is cancelled or Shutdown
// is called. The first sweep happens immediately rather than after the first
// interval so a backlog left by a restart is drained right away.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	interval := w.cfg.Worker.SweepInterval()

	w.mu.Lock()
	w.cancel = cancel
	w.status.IsRunning = true
	w.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "Report worker started", map[string]interface{}{
		"instance":   w.instance,
		"interval":   interval.String(),
		"batch_size": w.cfg.Worker.SweepBatchSize(),
	})

	w.run(ctx)
	w.setNextRun(w.timeNow().Add(interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Report worker shutting down", map[string]interface{}{
				"instance": w.instance,
			})
			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			return

		case <-ticker.C:
			w.run(ctx)
			w.setNextRun(w.timeNow().Add(interval))

		case <-w.manualTrigger:
			w.logger.Info(ctx, "Report worker triggered manually", map[string]interface{}{
				"instance": w.instance,
			})
			w.run(ctx)
			w.setNextRun(w.timeNow().Add(interval))
		}
	}
}

// run executes a single sweep cycle
func (w *Worker) run(ctx context.Context) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run",
		attribute.String("worker.instance", w.instance),
	)
	defer observability.FinishSpan(span, nil)

	if w.isPaused() {
		span.SetAttributes(attribute.Bool("worker.paused", true))
		w.updateActivity("Paused")
		return
	}

	w.setRunStart(w.timeNow())
	details, err := w.sweep(ctx)
	w.setRunFinish(w.timeNow(), err)
	w.recordRunHistory(details, err)

	if err != nil {
		w.logger.Error(ctx, "Report sweep failed", err, map[string]interface{}{
			"instance": w.instance,
			"details":  details,
		})
	}
}

// RunOnce executes a single sweep outside the ticker loop and returns its run
// record. The CLI worker uses it for cron-style one-shot invocations.
func (w *Worker) RunOnce(ctx context.Context) RunRecord {
	w.run(ctx)

	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.history) == 0 {
		return RunRecord{}
	}
	return w.history[len(w.history)-1]
}

// sweep finds completed assignments with no report row and builds each one.
// A single failing assignment is logged and skipped; a missing reports table
// aborts the whole run because every remaining build needs the same table.
func (w *Worker) sweep(ctx context.Context) (result0 string, err error) {
	batchSize := w.cfg.Worker.SweepBatchSize()

	ctx, span := observability.TraceWorkerFunction(ctx, "sweep",
		attribute.String("worker.instance", w.instance),
		attribute.Int("sweep.batch_size", batchSize),
	)
	defer observability.FinishSpan(span, &err)

	w.updateActivity("Looking for completed assignments without a report")

	assignments, err := w.assignments.GetCompletedWithoutReport(ctx, batchSize)
	if err != nil {
		if errors.Is(err, contextutils.ErrReportSchemaMissing) {
			return contextutils.MsgReportSchemaMissing, err
		}
		return "Failed to list assignments without a report", err
	}

	if len(assignments) == 0 {
		w.updateActivity("")
		return "No completed assignments are missing a report", nil
	}

	built := 0
	failed := 0
	for _, assignment := range assignments {
		if ctx.Err() != nil {
			return fmt.Sprintf("Sweep interrupted after %d of %d reports", built, len(assignments)), ctx.Err()
		}

		w.updateActivity(fmt.Sprintf("Building report for assignment %d", assignment.ID))

		if _, err := w.reports.BuildReport(ctx, assignment.ID); err != nil {
			if errors.Is(err, contextutils.ErrReportSchemaMissing) {
				return contextutils.MsgReportSchemaMissing, err
			}
			failed++
			w.logger.Error(ctx, "Failed to build report during sweep", err, map[string]interface{}{
				"instance":      w.instance,
				"assignment_id": assignment.ID,
			})
			continue
		}
		built++
	}

	span.SetAttributes(
		attribute.Int("sweep.candidates", len(assignments)),
		attribute.Int("sweep.built", built),
		attribute.Int("sweep.failed", failed),
	)
	w.updateActivity("")

	w.logger.Info(ctx, "Report sweep finished", map[string]interface{}{
		"instance":   w.instance,
		"candidates": len(assignments),
		"built":      built,
		"failed":     failed,
	})

	if failed > 0 {
		return fmt.Sprintf("Built %d of %d missing reports (%d failed)", built, len(assignments), failed), nil
	}
	return fmt.Sprintf("Built %d of %d missing reports", built, len(assignments)), nil
}

// recordRunHistory records the run in history and trims the slice
func (w *Worker) recordRunHistory(details string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := RunRecord{
		StartTime: w.status.LastRunStart,
		EndTime:   w.status.LastRunFinish,
		Duration:  w.status.LastRunFinish.Sub(w.status.LastRunStart),
		Details:   details,
	}
	if err != nil {
		record.Status = "Failure"
	} else {
		record.Status = "Success"
	}

	w.history = append(w.history, record)
	if len(w.history) > maxRunHistory {
		w.history = w.history[len(w.history)-maxRunHistory:]
	}
}

// GetStatus returns the current worker status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// GetHistory returns a copy of the worker's sweep history
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

// GetInstance returns the worker instance name
func (w *Worker) GetInstance() string {
	return w.instance
}

// TriggerManualRun requests an immediate sweep without waiting for the ticker
func (w *Worker) TriggerManualRun() {
	ctx := context.Background()
	select {
	case w.manualTrigger <- true:
		w.logger.Info(ctx, "Manual trigger sent to report worker", map[string]interface{}{
			"instance": w.instance,
		})
	default:
		w.logger.Info(ctx, "Manual trigger already pending for report worker", map[string]interface{}{
			"instance": w.instance,
		})
	}
}

// Pause suspends sweeping until Resume is called. The loop keeps ticking but
// each run is skipped while paused.
func (w *Worker) Pause(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = true
	w.mu.Unlock()

	w.logger.Info(ctx, "Report worker paused", map[string]interface{}{
		"instance": w.instance,
	})
}

// Resume lifts a pause set by Pause
func (w *Worker) Resume(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = false
	w.mu.Unlock()

	w.logger.Info(ctx, "Report worker resumed", map[string]interface{}{
		"instance": w.instance,
	})
}

// Shutdown stops the sweep loop
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	w.logger.Info(ctx, "Report worker shutdown requested", map[string]interface{}{
		"instance": w.instance,
	})
	return nil
}

func (w *Worker) isPaused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status.IsPaused
}

func (w *Worker) updateActivity(activity string) {
	w.mu.Lock()
	w.status.CurrentActivity = activity
	w.mu.Unlock()
}

func (w *Worker) setRunStart(t time.Time) {
	w.mu.Lock()
	w.status.LastRunStart = t
	w.mu.Unlock()
}

func (w *Worker) setRunFinish(t time.Time, err error) {
	w.mu.Lock()
	w.status.LastRunFinish = t
	if err != nil {
		w.status.LastRunError = err.Error()
	} else {
		w.status.LastRunError = ""
	}
	w.mu.Unlock()
}

func (w *Worker) setNextRun(t time.Time) {
	w.mu.Lock()
	w.status.NextRun = t
	w.mu.Unlock()
}
