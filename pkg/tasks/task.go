package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoTask is returned by Dequeue when nothing arrived before the timeout
	ErrNoTask = errors.New("no task available")

	// ErrQueueFull is returned by a bounded queue that cannot take more work
	ErrQueueFull = errors.New("task queue is full")
)

// Task is a unit of background work addressed to a named handler
type Task struct {
	ID         uuid.UUID              `json:"id"`
	Name       string                 `json:"name"`
	Params     map[string]interface{} `json:"params"`
	EnqueuedAt time.Time              `json:"enqueued_at"`
	Attempts   int                    `json:"attempts"`

	// raw is the payload as dequeued, needed to ack it
	raw string
}

// NewTask creates a task with a fresh ID
func NewTask(name string, params map[string]interface{}) Task {
	return Task{
		ID:         uuid.New(),
		Name:       name,
		Params:     params,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Int64Param reads an integer parameter, tolerating the float64 that
// JSON decoding produces
func (t Task) Int64Param(key string) (int64, error) {
	v, ok := t.Params[key]
	if !ok {
		return 0, fmt.Errorf("task %s: missing param %q", t.Name, key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("task %s: param %q is not an integer: %v", t.Name, key, n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("task %s: param %q has type %T", t.Name, key, v)
	}
}

// Queue accepts tasks for asynchronous execution. Enqueue never waits for the task to run.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}

// Source hands out queued tasks to a worker
type Source interface {
	// Dequeue blocks up to timeout and returns ErrNoTask when nothing arrived
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// Ack marks a dequeued task as done
	Ack(ctx context.Context, task *Task) error
}

// Broker is a queue that also feeds workers
type Broker interface {
	Queue
	Source
}
