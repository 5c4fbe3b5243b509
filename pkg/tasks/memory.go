package tasks

import (
	"context"
	"time"
)

// MemoryQueue is an in-process bounded queue for single-binary deployments and tests
type MemoryQueue struct {
	ch chan Task
}

// NewMemoryQueue creates a queue holding at most size pending tasks
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 100
	}
	return &MemoryQueue{ch: make(chan Task, size)}
}

// Enqueue adds a task, failing with ErrQueueFull instead of blocking
func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.ch <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Dequeue waits up to timeout for a task
func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case task := <-q.ch:
		return &task, nil
	case <-timer.C:
		return nil, ErrNoTask
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack is a no-op; an in-memory task is gone once dequeued
func (q *MemoryQueue) Ack(ctx context.Context, task *Task) error {
	return nil
}

// Depth reports pending tasks
func (q *MemoryQueue) Depth(ctx context.Context) (waiting, inFlight int64, err error) {
	return int64(len(q.ch)), 0, nil
}
