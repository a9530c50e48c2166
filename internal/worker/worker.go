// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package worker runs the background side of chapter imports.

Two loops share one process:

  - Queue consumers convert uploaded manuscripts, one job per import record.
  - A cron sweep fails records left in processing by a crashed consumer.
*/
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taibuivan/yomira-import/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-import/internal/platform/queue"
)

// Processor converts one queued import record.
type Processor interface {
	ProcessJob(ctx context.Context, recordID string) error
}

// Sweeper fails import records stuck in processing or never queued.
type Sweeper interface {
	SweepStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// # Queue Consumption

// JobHandler adapts a [Processor] to the queue. Every job gets its own logger.
func JobHandler(processor Processor, logger *slog.Logger) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		jobLogger := logger.With(
			slog.String("message_id", job.MessageID),
			slog.String("import_id", job.RecordID),
		)
		ctx = ctxutil.WithLogger(ctx, jobLogger)

		if !job.EnqueuedAt.IsZero() {
			jobLogger.Debug("import_job_received", slog.Duration("queued_for", time.Since(job.EnqueuedAt)))
		}
		return processor.ProcessJob(ctx, job.RecordID)
	}
}

// # Reconciliation

// Reconciler runs the stale-record sweep on a cron schedule.
type Reconciler struct {
	sweeper   Sweeper
	olderThan time.Duration
	logger    *slog.Logger
	cron      *cron.Cron

	mu      sync.Mutex
	running bool
}

/*
NewReconciler validates the schedule and registers the sweep.

Parameters:
  - sweeper: Sweeper
  - schedule: string (Standard cron expression or descriptor such as "@every 5m")
  - olderThan: time.Duration (Minimum time a record must have been processing)
  - logger: *slog.Logger

Returns:
  - *Reconciler
  - error: Invalid schedule or threshold
*/
func NewReconciler(sweeper Sweeper, schedule string, olderThan time.Duration, logger *slog.Logger) (*Reconciler, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("worker: stale threshold must be positive, got %s", olderThan)
	}

	reconciler := &Reconciler{
		sweeper:   sweeper,
		olderThan: olderThan,
		logger:    logger,
		cron:      cron.New(),
	}
	if _, err := reconciler.cron.AddFunc(schedule, reconciler.runScheduled); err != nil {
		return nil, fmt.Errorf("worker: invalid sweep schedule %q: %w", schedule, err)
	}
	return reconciler, nil
}

// Start begins the schedule. It stops when ctx is cancelled.
func (reconciler *Reconciler) Start(ctx context.Context) {
	reconciler.cron.Start()
	reconciler.logger.Info("reconciler_started", slog.Duration("stale_after", reconciler.olderThan))

	go func() {
		<-ctx.Done()
		<-reconciler.cron.Stop().Done()
		reconciler.logger.Info("reconciler_stopped")
	}()
}

// RunOnce sweeps immediately. Overlapping runs are skipped.
func (reconciler *Reconciler) RunOnce(ctx context.Context) (int, error) {
	reconciler.mu.Lock()
	if reconciler.running {
		reconciler.mu.Unlock()
		return 0, nil
	}
	reconciler.running = true
	reconciler.mu.Unlock()

	defer func() {
		reconciler.mu.Lock()
		reconciler.running = false
		reconciler.mu.Unlock()
	}()

	swept, err := reconciler.sweeper.SweepStale(ctxutil.WithLogger(ctx, reconciler.logger), reconciler.olderThan)
	if err != nil {
		return 0, fmt.Errorf("worker: sweep: %w", err)
	}
	return swept, nil
}

func (reconciler *Reconciler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	swept, err := reconciler.RunOnce(ctx)
	if err != nil {
		reconciler.logger.Error("reconciler_sweep_failed", slog.Any("error", err))
		return
	}
	if swept > 0 {
		reconciler.logger.Warn("reconciler_swept", slog.Int("records", swept))
	}
}
