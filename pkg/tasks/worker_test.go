package tasks

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docsapi/pkg/observability"
)

// recordingBroker wraps a MemoryQueue and counts acks
type recordingBroker struct {
	*MemoryQueue
	mu   sync.Mutex
	acks int
}

func (b *recordingBroker) Ack(ctx context.Context, task *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acks++
	return nil
}

func (b *recordingBroker) ackCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acks
}

func newTestWorker(t *testing.T, registry *Registry, maxAttempts int) (*Worker, *recordingBroker, *observability.Metrics, *bytes.Buffer) {
	t.Helper()
	broker := &recordingBroker{MemoryQueue: NewMemoryQueue(10)}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.DebugLevel, &buf)
	w := NewWorker(broker, registry, WorkerConfig{
		Concurrency: 2,
		MaxAttempts: maxAttempts,
		PollTimeout: 10 * time.Millisecond,
	}, logger, metrics)
	return w, broker, metrics, &buf
}

func TestWorker_ProcessSuccess(t *testing.T) {
	registry := NewRegistry()
	var got Task
	require.NoError(t, registry.Register("echo", func(ctx context.Context, task Task) error {
		got = task
		return nil
	}))

	w, broker, metrics, _ := newTestWorker(t, registry, 3)
	task := NewTask("echo", map[string]interface{}{"n": 1})
	w.Process(context.Background(), &task)

	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, 1, broker.ackCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TasksProcessedTotal.WithLabelValues("echo", "success")))
}

func TestWorker_RetryUntilMaxAttempts(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("flaky", func(ctx context.Context, task Task) error {
		return errors.New("boom")
	}))

	w, broker, metrics, buf := newTestWorker(t, registry, 2)
	task := NewTask("flaky", nil)
	w.Process(context.Background(), &task)

	retried, err := broker.Dequeue(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, task.ID, retried.ID)
	assert.Equal(t, 1, retried.Attempts)

	w.Process(context.Background(), retried)
	_, err = broker.Dequeue(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoTask)

	assert.Equal(t, 2, broker.ackCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.TasksProcessedTotal.WithLabelValues("flaky", "failure")))
	assert.Contains(t, buf.String(), "Task dropped after max attempts")
}

func TestWorker_PanicIsAFailure(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("explode", func(ctx context.Context, task Task) error {
		panic("kaboom")
	}))

	w, broker, _, buf := newTestWorker(t, registry, 1)
	task := NewTask("explode", nil)
	require.NotPanics(t, func() { w.Process(context.Background(), &task) })

	assert.Equal(t, 1, broker.ackCount())
	assert.Contains(t, buf.String(), "Task panicked")
}

func TestWorker_UnknownTaskIsNotRetried(t *testing.T) {
	w, broker, _, _ := newTestWorker(t, NewRegistry(), 3)
	task := NewTask("nobody-home", nil)
	w.Process(context.Background(), &task)

	_, err := broker.Dequeue(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrNoTask)
	assert.Equal(t, 1, broker.ackCount())
}

func TestWorker_Run(t *testing.T) {
	registry := NewRegistry()
	var processed int32
	require.NoError(t, registry.Register("count", func(ctx context.Context, task Task) error {
		atomic.AddInt32(&processed, 1)
		return nil
	}))

	w, broker, _, _ := newTestWorker(t, registry, 3)
	for i := 0; i < 5; i++ {
		require.NoError(t, broker.Enqueue(context.Background(), NewTask("count", nil)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&processed) == 5
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
