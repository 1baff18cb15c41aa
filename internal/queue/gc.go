package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GarbageCollector periodically purges dead-letter messages older than
// the retention window so failed jobs don't accumulate forever.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a collector over purger. A nil logger is
// replaced with a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, log *zap.Logger) *GarbageCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start runs the purge loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.log.Error("dlq_gc_failed", zap.Error(err))
			}
		}
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	n, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	if n > 0 {
		gc.log.Info("dlq_gc_purged",
			zap.Int("purged", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return nil
}
