package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/docsapi/pkg/config"
	"github.com/platinummonkey/docsapi/pkg/observability"
	"github.com/platinummonkey/docsapi/pkg/tasks"
)

const jobTimeout = 30 * time.Second

type depthReporter interface {
	Depth(ctx context.Context) (waiting, inFlight int64, err error)
}

type staleRequeuer interface {
	RequeueStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// NewScheduler registers the queue housekeeping jobs supported by broker.
// The caller starts and stops the returned scheduler.
func NewScheduler(cfg config.QueueConfig, broker tasks.Broker, metrics *observability.Metrics, logger *observability.Logger) (*cron.Cron, error) {
	c := cron.New()

	if q, ok := broker.(depthReporter); ok && cfg.DepthSchedule != "" {
		_, err := c.AddFunc(cfg.DepthSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			ReportDepth(ctx, cfg.Name, q, metrics, logger)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule queue depth job: %w", err)
		}
	}

	if q, ok := broker.(staleRequeuer); ok && cfg.RequeueSchedule != "" {
		_, err := c.AddFunc(cfg.RequeueSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			RequeueStale(ctx, q, cfg.StaleAfter, logger)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule requeue job: %w", err)
		}
	}

	return c, nil
}

// ReportDepth publishes the queue depth gauge
func ReportDepth(ctx context.Context, name string, q depthReporter, metrics *observability.Metrics, logger *observability.Logger) {
	waiting, inFlight, err := q.Depth(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read queue depth")
		return
	}
	metrics.SetQueueDepth(name, waiting, inFlight)
}

// RequeueStale puts tasks stuck in flight longer than maxAge back on the queue
func RequeueStale(ctx context.Context, q staleRequeuer, maxAge time.Duration, logger *observability.Logger) {
	moved, err := q.RequeueStale(ctx, maxAge)
	if err != nil {
		logger.WithError(err).Error("Failed to requeue stale tasks")
		return
	}
	if moved > 0 {
		logger.WithField("count", moved).Warn("Requeued stale tasks")
	}
}
