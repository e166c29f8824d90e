package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the job Service on a cron cadence. Overlap protection
// lives in the Service's per-slot guard, so a tick that fires while a
// slot is still running skips that slot rather than queueing behind it.
type Scheduler struct {
	cron    *cron.Cron
	svc     *Service
	spec    string
	logger  *slog.Logger
	entryID cron.EntryID
	started bool
}

// NewScheduler creates a Scheduler that triggers the Service per the given
// 5-field cron expression.
func NewScheduler(svc *Service, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the trigger and starts the cron loop.
func (s *Scheduler) Start() error {
	entryID, err := s.cron.AddFunc(s.spec, s.tick)
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.started = true
	s.cron.Start()
	s.logger.Info("forecast scheduler started", "cron", s.spec)
	return nil
}

// Stop stops the cron loop and waits for any in-flight trigger to finish.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("forecast scheduler stopped")
}

// tick runs one scheduled forecast job.
func (s *Scheduler) tick() {
	start := time.Now()
	summary, err := s.svc.RunAll(context.Background(), start)
	if err != nil {
		s.logger.Error("scheduled forecast job failed", "error", err)
		return
	}
	s.logger.Info("scheduled forecast job completed",
		"lead_time_series", summary.LeadTimeSeries,
		"sales_series", summary.SalesSeries,
		"skipped_slots", summary.SkippedSlots,
		"failed_slots", summary.FailedSlots,
		"rows_written", summary.RowsWritten,
		"elapsed", time.Since(start),
	)
}
