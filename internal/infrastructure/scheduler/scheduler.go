// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/cardledger/internal/usecase"
)

// DefaultJobTimeout bounds a single run of a scheduled job.
const DefaultJobTimeout = 5 * time.Minute

// Reconciler produces a reconciliation report across all owners.
type Reconciler interface {
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// Scheduler wraps a cron runner. Runs of the same job never overlap.
type Scheduler struct {
	cron       *cron.Cron
	logger     zerolog.Logger
	jobTimeout time.Duration
}

// New creates a Scheduler using the standard five-field cron syntax plus
// descriptors such as "@every 1h".
func New(logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		logger:     logger,
		jobTimeout: DefaultJobTimeout,
	}
}

// AddReconciliation schedules a full reconciliation run on the cron schedule.
func (s *Scheduler) AddReconciliation(schedule string, reconciler Reconciler) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runReconciliation(reconciler)
	})
	if err != nil {
		return fmt.Errorf("invalid reconciliation schedule %q: %w", schedule, err)
	}

	s.logger.Info().Str("schedule", schedule).Msg("reconciliation job scheduled")

	return nil
}

func (s *Scheduler) runReconciliation(reconciler Reconciler) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	report, err := reconciler.GenerateReconciliationReport(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled reconciliation failed")
		return
	}

	event := s.logger.Info()
	if !report.Consistent() {
		event = s.logger.Warn()
	}

	event.
		Int("owners", report.TotalOwners).
		Int("cards", report.TotalCards).
		Int("card_discrepancies", len(report.CardDiscrepancies)).
		Int("summary_discrepancies", len(report.SummaryDiscrepancies)).
		Msg("scheduled reconciliation finished")
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
