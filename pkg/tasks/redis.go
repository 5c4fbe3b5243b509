package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue is a reliable queue on Redis lists. Dequeue atomically moves a
// payload to a processing list; Ack removes it. Payloads left in processing
// by a crashed worker are pushed back by RequeueStale.
type RedisQueue struct {
	client        *redis.Client
	name          string
	queueKey      string
	processingKey string
	startedKey    string
}

// NewRedisQueue creates a queue stored under docsapi:queue:{name}
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	key := "docsapi:queue:" + name
	return &RedisQueue{
		client:        client,
		name:          name,
		queueKey:      key,
		processingKey: key + ":processing",
		startedKey:    key + ":started",
	}
}

// Name returns the queue name
func (q *RedisQueue) Name() string {
	return q.name
}

// Enqueue pushes a task
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.Name, err)
	}
	if err := q.client.LPush(ctx, q.queueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.Name, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the oldest task
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	raw, err := q.client.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		// drop the poison payload so it doesn't get requeued forever
		q.client.LRem(ctx, q.processingKey, 1, raw)
		return nil, fmt.Errorf("decode task: %w", err)
	}
	task.raw = raw

	if err := q.client.HSet(ctx, q.startedKey, task.ID.String(), time.Now().Unix()).Err(); err != nil {
		return nil, fmt.Errorf("mark task %s started: %w", task.ID, err)
	}
	return &task, nil
}

// Ack removes a finished task from the processing list
func (q *RedisQueue) Ack(ctx context.Context, task *Task) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey, 1, task.raw)
		pipe.HDel(ctx, q.startedKey, task.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack task %s: %w", task.ID, err)
	}
	return nil
}

// Depth reports waiting and in-flight task counts
func (q *RedisQueue) Depth(ctx context.Context) (waiting, inFlight int64, err error) {
	waiting, err = q.client.LLen(ctx, q.queueKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("queue length: %w", err)
	}
	inFlight, err = q.client.LLen(ctx, q.processingKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("processing length: %w", err)
	}
	return waiting, inFlight, nil
}

// RequeueStale moves tasks that have been processing longer than maxAge back
// onto the queue and returns how many were moved
func (q *RedisQueue) RequeueStale(ctx context.Context, maxAge time.Duration) (int, error) {
	payloads, err := q.client.LRange(ctx, q.processingKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list processing: %w", err)
	}

	cutoff := time.Now().Add(-maxAge).Unix()
	moved := 0
	for _, raw := range payloads {
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			continue
		}

		started, err := q.client.HGet(ctx, q.startedKey, task.ID.String()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return moved, fmt.Errorf("read start time of %s: %w", task.ID, err)
		}
		if started == "" {
			// dequeued but not yet stamped; start the clock and look again next sweep
			q.client.HSetNX(ctx, q.startedKey, task.ID.String(), time.Now().Unix())
			continue
		}
		if ts, perr := strconv.ParseInt(started, 10, 64); perr == nil && ts > cutoff {
			continue
		}

		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, q.processingKey, 1, raw)
			pipe.RPush(ctx, q.queueKey, raw)
			pipe.HDel(ctx, q.startedKey, task.ID.String())
			return nil
		})
		if err != nil {
			return moved, fmt.Errorf("requeue %s: %w", task.ID, err)
		}
		moved++
	}
	return moved, nil
}
