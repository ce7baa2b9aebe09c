// Package sched triggers import cycles on a fixed interval. A tick that
// arrives while a cycle is still running is dropped, not queued.
package sched

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/importer"
)

// Runner is the single externally-triggerable pipeline entry point.
type Runner interface {
	RunCycle(ctx context.Context, deleteAfterDownload bool) (*importer.Outcome, error)
}

// Scheduler runs import cycles on an interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	// deleteAfterDownload is passed to every scheduled cycle. Scheduled
	// imports acknowledge the remote queue by default; manual triggers
	// choose per call.
	deleteAfterDownload bool
	logger              *slog.Logger
}

// New creates a Scheduler.
func New(runner Runner, interval time.Duration, deleteAfterDownload bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:              runner,
		interval:            interval,
		deleteAfterDownload: deleteAfterDownload,
		logger:              logger,
	}
}

// Run blocks until ctx is cancelled, firing a cycle every interval. The first
// cycle runs one interval after start, not immediately, so a deploy does not
// double-fire alongside an operator-triggered import.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sched: started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sched: stopped")
			return nil
		case <-ticker.C:
			out, err := s.runner.RunCycle(ctx, s.deleteAfterDownload)
			switch {
			case errors.Is(err, apperr.ErrCycleActive):
				s.logger.Warn("sched: previous cycle still running, tick dropped")
			case err != nil:
				s.logger.Error("sched: cycle failed", slog.String("error", err.Error()))
			default:
				s.logger.Info("sched: cycle complete",
					slog.Int("downloaded", out.Downloaded),
					slog.Int("imported", out.Imported),
					slog.Int("skipped", out.Skipped),
					slog.Int("errors", len(out.Errors)))
			}
		}
	}
}
