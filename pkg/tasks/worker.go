package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/platinummonkey/docsapi/pkg/observability"
)

// WorkerConfig tunes a Worker
type WorkerConfig struct {
	Concurrency int
	MaxAttempts int
	PollTimeout time.Duration
	TaskTimeout time.Duration
}

func (c *WorkerConfig) setDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 10 * time.Minute
	}
}

// Worker pulls tasks from a Broker and runs them through a Registry.
// Failed tasks are re-enqueued until MaxAttempts; panics count as failures.
type Worker struct {
	broker   Broker
	registry *Registry
	cfg      WorkerConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewWorker creates a worker. metrics may be nil.
func NewWorker(broker Broker, registry *Registry, cfg WorkerConfig, logger *observability.Logger, metrics *observability.Metrics) *Worker {
	cfg.setDefaults()
	return &Worker{
		broker:   broker,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run processes tasks until ctx is cancelled, then waits for in-flight tasks
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithFields(map[string]interface{}{
		"concurrency": w.cfg.Concurrency,
		"tasks":       w.registry.Names(),
	}).Info("Worker started")

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	w.logger.Info("Worker stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context, id int) {
	logger := w.logger.WithField("worker_id", id)
	for ctx.Err() == nil {
		task, err := w.broker.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, ErrNoTask) || ctx.Err() != nil {
				continue
			}
			logger.WithError(err).Warn("Dequeue failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// a task already taken off the queue is finished even during shutdown
		w.Process(context.WithoutCancel(ctx), task)
	}
}

// Process runs one dequeued task, retries it on failure and acks it
func (w *Worker) Process(ctx context.Context, task *Task) {
	logger := w.logger.WithFields(map[string]interface{}{
		"task_id":   task.ID.String(),
		"task_name": task.Name,
		"attempt":   task.Attempts + 1,
	})
	ctx = observability.WithLogger(ctx, logger)

	start := time.Now()
	err := w.execute(ctx, task)
	w.metrics.RecordTask(task.Name, time.Since(start), err)

	if err != nil {
		logger.WithError(err).Error("Task failed")
		w.retry(ctx, task, logger)
	} else {
		logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Task completed")
	}

	if ackErr := w.broker.Ack(ctx, task); ackErr != nil {
		logger.WithError(ackErr).Error("Failed to ack task")
	}
}

func (w *Worker) execute(ctx context.Context, task *Task) (err error) {
	handler, ok := w.registry.Lookup(task.Name)
	if !ok {
		return fmt.Errorf("no handler registered for task %q", task.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.WithFields(map[string]interface{}{
				"task_name": task.Name,
				"stack":     string(debug.Stack()),
			}).Error("Task panicked")
			err = fmt.Errorf("panic in task %s: %v", task.Name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, w.cfg.TaskTimeout)
	defer cancel()
	return handler(ctx, *task)
}

func (w *Worker) retry(ctx context.Context, task *Task, logger *observability.Logger) {
	if _, ok := w.registry.Lookup(task.Name); !ok {
		return
	}
	next := *task
	next.Attempts++
	next.raw = ""
	if next.Attempts >= w.cfg.MaxAttempts {
		logger.WithField("max_attempts", w.cfg.MaxAttempts).Error("Task dropped after max attempts")
		return
	}
	if err := w.broker.Enqueue(ctx, next); err != nil {
		logger.WithError(err).Error("Failed to re-enqueue task")
	}
}
