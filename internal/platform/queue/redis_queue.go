// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package queue provides a Redis Streams backed job queue.

Producers append a job referencing an entity id; consumers in a shared group
read, handle and acknowledge it. Delivery is single-attempt: a job is acknowledged
whether its handler succeeds or fails, and the handler owns recording the outcome.
Messages left pending by a crashed consumer are re-claimed after ClaimIdle, so
handlers must treat a redelivered job as a possible duplicate.
*/
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldRecordID   = "record_id"
	fieldEnqueuedAt = "enqueued_at"
)

// ErrEmptyRecordID is returned when enqueueing a job without a target.
var ErrEmptyRecordID = errors.New("queue: record id required")

// Job is a single delivery read from the stream.
type Job struct {
	MessageID  string
	RecordID   string
	EnqueuedAt time.Time
}

// Handler processes one job. Its error is logged, never retried.
type Handler func(ctx context.Context, job Job) error

// Config tunes a [RedisJobQueue]. Zero values fall back to defaults.
type Config struct {
	Stream     string
	Group      string
	Consumer   string
	Block      time.Duration
	ClaimIdle  time.Duration
	JobTimeout time.Duration
	MaxLen     int64
	ReadCount  int64
}

// RedisJobQueue implements a consumer-group queue on a Redis stream.
type RedisJobQueue struct {
	client       *redis.Client
	logger       *slog.Logger
	stream       string
	group        string
	consumerBase string
	block        time.Duration
	claimIdle    time.Duration
	jobTimeout   time.Duration
	maxLen       int64
	readCount    int64
	once         sync.Once
	groupErr     error
	wg           sync.WaitGroup
}

// NewRedisJobQueue builds a queue over an existing client.
func NewRedisJobQueue(client *redis.Client, cfg Config, logger *slog.Logger) (*RedisJobQueue, error) {
	if client == nil {
		return nil, errors.New("queue: redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("queue: stream required")
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "default"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = "consumer"
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 10 * time.Minute
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	readCount := cfg.ReadCount
	if readCount <= 0 {
		readCount = 1
	}

	return &RedisJobQueue{
		client:       client,
		logger:       logger,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		block:        block,
		claimIdle:    claimIdle,
		jobTimeout:   jobTimeout,
		maxLen:       maxLen,
		readCount:    readCount,
	}, nil
}

// Enqueue appends a job for recordID to the stream.
func (q *RedisJobQueue) Enqueue(ctx context.Context, recordID string) error {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return ErrEmptyRecordID
	}

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			fieldRecordID:   recordID,
			fieldEnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", recordID, err)
	}

	return nil
}

// Start launches concurrency consumers that run until ctx is cancelled.
// It returns once the consumer group exists; consumption continues in the background.
func (q *RedisJobQueue) Start(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.consumerBase, i)
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.consumeLoop(ctx, consumer, handler)
		}()
	}

	q.logger.Info("queue_consumers_started",
		slog.String("stream", q.stream),
		slog.String("group", q.group),
		slog.Int("concurrency", concurrency),
	)
	return nil
}

// Wait blocks until every consumer started by [RedisJobQueue.Start] has returned.
func (q *RedisJobQueue) Wait() {
	q.wg.Wait()
}

// ensureGroup creates the consumer group from the start of the stream so that
// jobs enqueued before the first worker boots are still delivered.
func (q *RedisJobQueue) ensureGroup(ctx context.Context) error {
	q.once.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			q.groupErr = fmt.Errorf("queue: create group: %w", err)
		}
	})
	return q.groupErr
}

func (q *RedisJobQueue) consumeLoop(ctx context.Context, consumer string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, handler)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Warn("queue_read_failed", slog.String("consumer", consumer), slog.Any("error", err))
			q.pause(ctx)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, handler)
			}
		}
	}
}

// claimPending takes over messages another consumer read but never acknowledged.
func (q *RedisJobQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.readCount,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (q *RedisJobQueue) handleMessage(ctx context.Context, msg redis.XMessage, handler Handler) {
	job, ok := decodeJob(msg)
	if !ok {
		q.logger.Warn("queue_message_malformed", slog.String("message_id", msg.ID))
		q.ackAndDel(ctx, msg.ID)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()

	if err := handler(jobCtx, job); err != nil {
		q.logger.Error("queue_job_failed",
			slog.String("message_id", job.MessageID),
			slog.String("record_id", job.RecordID),
			slog.Any("error", err),
		)
	}

	q.ackAndDel(ctx, msg.ID)
}

func (q *RedisJobQueue) ackAndDel(ctx context.Context, msgID string) {
	pipe := q.client.TxPipeline()
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Warn("queue_ack_failed", slog.String("message_id", msgID), slog.Any("error", err))
	}
}

// pause backs off after a transport error so a broken connection does not spin.
func (q *RedisJobQueue) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
	}
}

func decodeJob(msg redis.XMessage) (Job, bool) {
	recordID, _ := msg.Values[fieldRecordID].(string)
	if strings.TrimSpace(recordID) == "" {
		return Job{}, false
	}

	job := Job{MessageID: msg.ID, RecordID: recordID}
	if raw, _ := msg.Values[fieldEnqueuedAt].(string); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			job.EnqueuedAt = parsed
		}
	}
	return job, true
}
