package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sweepAssignmentStore feeds the worker a canned batch of completed
// assignments and records each requested batch size.
type sweepAssignmentStore struct {
	batch    []models.Assignment
	fetchErr error
	limits   []int
}

func (m *sweepAssignmentStore) GetCompletedWithoutReport(ctx context.Context, limit int) ([]models.Assignment, error) {
	m.limits = append(m.limits, limit)
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.batch, nil
}

// The rest are not needed for these tests.
func (m *sweepAssignmentStore) GetAssignmentsForClient(ctx context.Context, clientID int) ([]models.Assignment, error) {
	return nil, nil
}
func (m *sweepAssignmentStore) GetCompletedAssignmentsByTarget(ctx context.Context, targetID int) ([]models.Assignment, error) {
	return nil, nil
}
func (m *sweepAssignmentStore) GetAssignmentByID(ctx context.Context, id int) (*models.Assignment, error) {
	return nil, nil
}
func (m *sweepAssignmentStore) CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	return nil, nil
}
func (m *sweepAssignmentStore) MarkCompleted(ctx context.Context, id int) error { return nil }

// sweepReportBuilder records which assignments were built and can fail
// selected ids.
type sweepReportBuilder struct {
	built  []int
	failOn map[int]error
}

func (m *sweepReportBuilder) BuildReport(ctx context.Context, assignmentID int) (*models.Report, error) {
	if err, ok := m.failOn[assignmentID]; ok {
		return nil, err
	}
	m.built = append(m.built, assignmentID)
	return &models.Report{ID: len(m.built), AssignmentID: assignmentID}, nil
}

func (m *sweepReportBuilder) RebuildReport(ctx context.Context, assignmentID int) (*models.Report, error) {
	return m.BuildReport(ctx, assignmentID)
}

func (m *sweepReportBuilder) GetReport(ctx context.Context, assignmentID int) (*models.Report, error) {
	return nil, nil
}

func newSweepWorker(assignments *sweepAssignmentStore, reports *sweepReportBuilder, cfg *config.Config) *Worker {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	if cfg == nil {
		cfg = &config.Config{}
	}
	return NewWorker(assignments, reports, "test", cfg, logger)
}

func completedBatch(ids ...int) []models.Assignment {
	batch := make([]models.Assignment, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, models.Assignment{ID: id, UserID: id * 10, AssessmentID: 1, Completed: true})
	}
	return batch
}

func TestSweep_BuildsAllMissingReports(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(1, 2, 3)}
	reports := &sweepReportBuilder{}
	cfg := &config.Config{}
	cfg.Worker.BatchSize = 5
	w := newSweepWorker(assignments, reports, cfg)

	details, err := w.sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Built 3 of 3 missing reports", details)
	assert.Equal(t, []int{1, 2, 3}, reports.built)
	assert.Equal(t, []int{5}, assignments.limits, "sweep should request the configured batch size")
}

func TestSweep_DefaultBatchSize(t *testing.T) {
	assignments := &sweepAssignmentStore{}
	w := newSweepWorker(assignments, &sweepReportBuilder{}, nil)

	_, err := w.sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, assignments.limits, 1)
	assert.Equal(t, config.DefaultWorkerBatchSize, assignments.limits[0])
}

func TestSweep_NothingToDo(t *testing.T) {
	assignments := &sweepAssignmentStore{}
	reports := &sweepReportBuilder{}
	w := newSweepWorker(assignments, reports, nil)

	details, err := w.sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "No completed assignments are missing a report", details)
	assert.Empty(t, reports.built)
}

func TestSweep_OneFailureDoesNotStopRun(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(1, 2, 3)}
	reports := &sweepReportBuilder{failOn: map[int]error{2: assert.AnError}}
	w := newSweepWorker(assignments, reports, nil)

	details, err := w.sweep(context.Background())

	require.NoError(t, err, "a per-assignment failure must not fail the run")
	assert.Equal(t, "Built 2 of 3 missing reports (1 failed)", details)
	assert.Equal(t, []int{1, 3}, reports.built)
}

func TestSweep_MissingReportsTableAbortsFetch(t *testing.T) {
	assignments := &sweepAssignmentStore{
		fetchErr: contextutils.WrapError(contextutils.ErrReportSchemaMissing, "failed to query assignments without report"),
	}
	reports := &sweepReportBuilder{}
	w := newSweepWorker(assignments, reports, nil)

	details, err := w.sweep(context.Background())

	assert.ErrorIs(t, err, contextutils.ErrReportSchemaMissing)
	assert.Equal(t, contextutils.MsgReportSchemaMissing, details)
	assert.Empty(t, reports.built)
}

func TestSweep_MissingReportsTableAbortsBuilds(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(1, 2, 3)}
	reports := &sweepReportBuilder{failOn: map[int]error{1: contextutils.ErrReportSchemaMissing}}
	w := newSweepWorker(assignments, reports, nil)

	details, err := w.sweep(context.Background())

	assert.ErrorIs(t, err, contextutils.ErrReportSchemaMissing)
	assert.Equal(t, contextutils.MsgReportSchemaMissing, details)
	assert.Empty(t, reports.built, "remaining assignments should not be attempted once the table is known to be missing")
}

func TestSweep_CancelledContextStopsBatch(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(1, 2)}
	reports := &sweepReportBuilder{}
	w := newSweepWorker(assignments, reports, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	details, err := w.sweep(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, details, "Sweep interrupted")
	assert.Empty(t, reports.built)
}

func TestRun_RecordsHistoryAndStatus(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(7)}
	reports := &sweepReportBuilder{}
	w := newSweepWorker(assignments, reports, nil)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	w.timeNow = func() time.Time { return base }

	w.run(context.Background())

	status := w.GetStatus()
	assert.Equal(t, base, status.LastRunStart)
	assert.Equal(t, base, status.LastRunFinish)
	assert.Empty(t, status.LastRunError)

	history := w.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "Success", history[0].Status)
	assert.Equal(t, "Built 1 of 1 missing reports", history[0].Details)
}

func TestRun_FetchErrorMarksRunFailed(t *testing.T) {
	assignments := &sweepAssignmentStore{fetchErr: assert.AnError}
	w := newSweepWorker(assignments, &sweepReportBuilder{}, nil)

	w.run(context.Background())

	status := w.GetStatus()
	assert.NotEmpty(t, status.LastRunError)

	history := w.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "Failure", history[0].Status)
	assert.Equal(t, "Failed to list assignments without a report", history[0].Details)
}

func TestRun_PausedSkipsSweep(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(1)}
	reports := &sweepReportBuilder{}
	w := newSweepWorker(assignments, reports, nil)

	ctx := context.Background()
	w.Pause(ctx)
	w.run(ctx)

	assert.Empty(t, assignments.limits, "a paused worker should not query for work")
	assert.Empty(t, w.GetHistory())
	assert.Equal(t, "Paused", w.GetStatus().CurrentActivity)

	w.Resume(ctx)
	w.run(ctx)

	assert.Len(t, assignments.limits, 1)
	require.Len(t, w.GetHistory(), 1)
	assert.Equal(t, []int{1}, reports.built)
}

func TestRunOnce_ReturnsLatestRecord(t *testing.T) {
	assignments := &sweepAssignmentStore{batch: completedBatch(4, 5)}
	reports := &sweepReportBuilder{}
	w := newSweepWorker(assignments, reports, nil)

	record := w.RunOnce(context.Background())

	assert.Equal(t, "Success", record.Status)
	assert.Equal(t, "Built 2 of 2 missing reports", record.Details)
	assert.Equal(t, []int{4, 5}, reports.built)
	require.Len(t, w.GetHistory(), 1)
}

func TestRunOnce_FailureStatus(t *testing.T) {
	assignments := &sweepAssignmentStore{fetchErr: assert.AnError}
	w := newSweepWorker(assignments, &sweepReportBuilder{}, nil)

	record := w.RunOnce(context.Background())

	assert.Equal(t, "Failure", record.Status)
	assert.Equal(t, "Failed to list assignments without a report", record.Details)
}

func TestRecordRunHistory_TrimsToCap(t *testing.T) {
	w := newSweepWorker(&sweepAssignmentStore{}, &sweepReportBuilder{}, nil)

	for i := 0; i < maxRunHistory+10; i++ {
		w.recordRunHistory(fmt.Sprintf("run %d", i), nil)
	}

	history := w.GetHistory()
	require.Len(t, history, maxRunHistory)
	assert.Equal(t, fmt.Sprintf("run %d", 10), history[0].Details)
	assert.Equal(t, fmt.Sprintf("run %d", maxRunHistory+9), history[len(history)-1].Details)
}

func TestStart_ManualTriggerAndShutdown(t *testing.T) {
	assignments := &sweepAssignmentStore{}
	reports := &sweepReportBuilder{}
	cfg := &config.Config{}
	cfg.Worker.Interval = time.Hour // only the initial and manual sweeps should fire
	w := newSweepWorker(assignments, reports, cfg)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(w.GetHistory()) == 1
	}, 2*time.Second, 10*time.Millisecond, "initial sweep should run immediately")
	assert.True(t, w.GetStatus().IsRunning)

	w.TriggerManualRun()
	assert.Eventually(t, func() bool {
		return len(w.GetHistory()) == 2
	}, 2*time.Second, 10*time.Millisecond, "manual trigger should cause a second sweep")

	require.NoError(t, w.Shutdown(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after shutdown")
	}

	assert.False(t, w.GetStatus().IsRunning)
	assert.Len(t, assignments.limits, 2)
	assert.False(t, w.GetStatus().NextRun.IsZero())
}

func TestNewWorker_DefaultsInstanceName(t *testing.T) {
	w := newSweepWorker(&sweepAssignmentStore{}, &sweepReportBuilder{}, nil)
	assert.Equal(t, "test", w.GetInstance())

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	unnamed := NewWorker(&sweepAssignmentStore{}, &sweepReportBuilder{}, "", &config.Config{}, logger)
	assert.Equal(t, "default", unnamed.GetInstance())
}
