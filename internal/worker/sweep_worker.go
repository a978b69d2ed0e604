package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusvoice/feedback-service/internal/observability"
)

const sweepLockKey = "feedback:sweep:lock"

// Sweeper runs one SLA sweep pass.
type Sweeper interface {
	SweepEscalations(ctx context.Context, now time.Time) (int, error)
}

// SweepWorker triggers the SLA sweep on a fixed interval. A best-effort
// redis lock keeps redundant instances from sweeping simultaneously; the
// sweep itself is idempotent, so losing the lock race or running without
// redis is safe.
type SweepWorker struct {
	sweeper  Sweeper
	redis    *redis.Client
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
}

// NewSweepWorker constructs the worker. redisClient may be nil.
func NewSweepWorker(sweeper Sweeper, redisClient *redis.Client, logger *zap.Logger, metrics *observability.Metrics, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SweepWorker{
		sweeper:  sweeper,
		redis:    redisClient,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *SweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sweep worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return
		case now := <-ticker.C:
			w.sweepOnce(ctx, now.UTC())
		}
	}
}

func (w *SweepWorker) sweepOnce(ctx context.Context, now time.Time) {
	if !w.acquireLock(ctx) {
		w.logger.Debug("sweep lock held elsewhere; skipping tick")
		return
	}

	count, err := w.sweeper.SweepEscalations(ctx, now)
	if err != nil {
		w.logger.Error("sweep failed", zap.Error(err))
		return
	}
	w.metrics.RecordSweep(count)
	if count > 0 {
		w.logger.Info("sweep escalated overdue issues", zap.Int("count", count))
	}
}

func (w *SweepWorker) acquireLock(ctx context.Context) bool {
	if w.redis == nil {
		return true
	}
	ok, err := w.redis.SetNX(ctx, sweepLockKey, "1", w.interval).Result()
	if err != nil {
		// Redis trouble must not stall escalation; sweep anyway.
		w.logger.Warn("sweep lock unavailable; proceeding without it", zap.Error(err))
		return true
	}
	return ok
}
