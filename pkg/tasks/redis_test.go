package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*miniredis.Miniredis, *RedisQueue) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisQueue(client, "builds")
}

func TestRedisQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	mr, q := setupRedisQueue(t)

	first := NewUpdateDocs(1, 10)
	second := NewUpdateDocs(1, 11)
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))
	assert.True(t, mr.Exists("docsapi:queue:builds"))

	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, task.ID)

	waiting, inFlight, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), waiting)
	assert.Equal(t, int64(1), inFlight)

	require.NoError(t, q.Ack(ctx, task))

	_, inFlight, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inFlight)
}

func TestRedisQueue_Empty(t *testing.T) {
	_, q := setupRedisQueue(t)

	_, err := q.Dequeue(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestRedisQueue_PoisonPayload(t *testing.T) {
	ctx := context.Background()
	mr, q := setupRedisQueue(t)

	_, err := mr.Lpush("docsapi:queue:builds", "not json")
	require.NoError(t, err)

	_, err = q.Dequeue(ctx, time.Second)
	assert.Error(t, err)

	_, inFlight, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inFlight)
}

func TestRedisQueue_RequeueStale(t *testing.T) {
	ctx := context.Background()
	mr, q := setupRedisQueue(t)

	task := NewUpdateDocs(1, 10)
	require.NoError(t, q.Enqueue(ctx, task))
	dequeued, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	moved, err := q.RequeueStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, moved, "fresh task must stay in flight")

	mr.HSet("docsapi:queue:builds:started", dequeued.ID.String(), "1")

	moved, err = q.RequeueStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	waiting, inFlight, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), waiting)
	assert.Equal(t, int64(0), inFlight)

	again, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, task.ID, again.ID)
}

func TestRedisQueue_RequeueUnstamped(t *testing.T) {
	ctx := context.Background()
	mr, q := setupRedisQueue(t)

	task := NewUpdateDocs(1, 10)
	require.NoError(t, q.Enqueue(ctx, task))
	dequeued, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	mr.HDel("docsapi:queue:builds:started", dequeued.ID.String())

	moved, err := q.RequeueStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, moved)
	assert.NotEmpty(t, mr.HGet("docsapi:queue:builds:started", dequeued.ID.String()))
}

func TestRedisQueue_Unavailable(t *testing.T) {
	mr, q := setupRedisQueue(t)
	mr.Close()

	assert.Error(t, q.Enqueue(context.Background(), NewUpdateDocs(1, 1)))
}
