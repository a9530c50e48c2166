// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command worker converts uploaded manuscripts in the background.
//
// # Startup Sequence
//
//  1. Initialize structured logger and load configuration.
//  2. Connect to PostgreSQL, Redis and object storage.
//  3. Start the queue consumers and the stale-record sweep.
//  4. On SIGTERM, stop consuming and wait for in-flight jobs.
//
// Migrations are owned by cmd/api; the worker expects the schema to exist.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/yomira-import/internal/core/chapter"
	"github.com/taibuivan/yomira-import/internal/core/importer"
	"github.com/taibuivan/yomira-import/internal/platform/config"
	"github.com/taibuivan/yomira-import/internal/platform/constants"
	pgstore "github.com/taibuivan/yomira-import/internal/platform/postgres"
	"github.com/taibuivan/yomira-import/internal/platform/queue"
	redisstore "github.com/taibuivan/yomira-import/internal/platform/redis"
	"github.com/taibuivan/yomira-import/internal/platform/storage"
	"github.com/taibuivan/yomira-import/internal/worker"
)

func main() {
	// ── 1. Logger & Configuration ──────────────────────────────────────────
	level := slog.LevelInfo
	cfg, err := config.Load()
	if err == nil && cfg.Debug {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName), slog.String("role", "worker"))
	slog.SetDefault(log)
	must(log, err, "load configuration")

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 2. Dependencies ───────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer pool.Close()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	objects, err := storage.NewMinioStore(startupCtx, storage.Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	}, log)
	must(log, err, "connect to object storage")

	hostname, _ := os.Hostname()
	jobs, err := queue.NewRedisJobQueue(rdb, queue.Config{
		Stream:     cfg.ImportStream,
		Group:      cfg.ImportGroup,
		Consumer:   hostname,
		JobTimeout: constants.ImportJobTimeout,
	}, log)
	must(log, err, "initialize import queue")

	// Consumers never enqueue, so the service gets no producer.
	importService := importer.NewService(
		importer.NewRecordRepository(pool),
		chapter.NewRepository(pool),
		objects,
		nil,
	)

	// ── 3. Background Loops ───────────────────────────────────────────────
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reconciler, err := worker.NewReconciler(importService, cfg.SweepSchedule, cfg.StaleProcessingAfter, log)
	must(log, err, "initialize reconciler")

	// Records orphaned by the previous process are failed before new work starts.
	if swept, err := reconciler.RunOnce(startupCtx); err != nil {
		log.Error("startup_sweep_failed", slog.Any("error", err))
	} else if swept > 0 {
		log.Warn("startup_sweep_failed_records", slog.Int("records", swept))
	}
	reconciler.Start(runCtx)

	must(log, jobs.Start(runCtx, cfg.WorkerConcurrency, worker.JobHandler(importService, log)), "start queue consumers")

	// ── 4. Graceful Shutdown ──────────────────────────────────────────────
	<-runCtx.Done()
	log.Info("shutdown_signal_received")

	done := make(chan struct{})
	go func() {
		jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("worker_stopped_cleanly")
	case <-time.After(constants.ShutdownTimeout):
		log.Error("worker_shutdown_timeout", slog.Duration("timeout", constants.ShutdownTimeout))
		os.Exit(1)
	}
}

func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
