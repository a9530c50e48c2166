// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*RedisJobQueue, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q, err := NewRedisJobQueue(client, Config{
		Stream:   "test:imports",
		Group:    "test-group",
		Consumer: "worker",
		Block:    20 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return q, client
}

/*
TestRedisJobQueue_EnqueueRejectsEmptyID guards against jobs without a target.
*/
func TestRedisJobQueue_EnqueueRejectsEmptyID(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.ErrorIs(t, q.Enqueue(context.Background(), "   "), ErrEmptyRecordID)
}

/*
TestRedisJobQueue_DeliversJobEnqueuedBeforeStart verifies that the group reads from
the beginning of the stream and that handled jobs are acknowledged.
*/
func TestRedisJobQueue_DeliversJobEnqueuedBeforeStart(t *testing.T) {
	q, client := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Enqueue(ctx, "import-1"))

	received := make(chan Job, 1)
	require.NoError(t, q.Start(ctx, 1, func(_ context.Context, job Job) error {
		received <- job
		return nil
	}))

	select {
	case job := <-received:
		assert.Equal(t, "import-1", job.RecordID)
		assert.False(t, job.EnqueuedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}

	cancel()
	q.Wait()

	pending, err := client.XPending(context.Background(), q.stream, q.group).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

/*
TestRedisJobQueue_FailedJobIsNotRetried checks single-attempt delivery.
*/
func TestRedisJobQueue_FailedJobIsNotRetried(t *testing.T) {
	q, client := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Enqueue(ctx, "import-2"))

	calls := make(chan struct{}, 4)
	require.NoError(t, q.Start(ctx, 1, func(context.Context, Job) error {
		calls <- struct{}{}
		return errors.New("conversion failed")
	}))

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}

	// Give the consumer a few more read cycles to prove nothing is redelivered
	time.Sleep(100 * time.Millisecond)
	cancel()
	q.Wait()

	assert.Len(t, calls, 0)

	length, err := client.XLen(context.Background(), q.stream).Result()
	require.NoError(t, err)
	assert.Zero(t, length)
}

/*
TestDecodeJob rejects messages lacking a record id.
*/
func TestDecodeJob(t *testing.T) {
	_, ok := decodeJob(redis.XMessage{ID: "1-0", Values: map[string]any{}})
	assert.False(t, ok)

	job, ok := decodeJob(redis.XMessage{ID: "2-0", Values: map[string]any{fieldRecordID: "abc"}})
	require.True(t, ok)
	assert.Equal(t, "abc", job.RecordID)
	assert.Equal(t, "2-0", job.MessageID)
}
