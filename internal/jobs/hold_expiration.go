package jobs

import (
	"context"
	"sync"
	"time"

	"parking/internal/logger"
	"parking/internal/metrics"
)

// Sweeper expires pending holds whose TTL has passed.
type Sweeper interface {
	SweepExpired(ctx context.Context) ([]int64, error)
}

// Refresher re-derives slot states that change with time alone, such as a
// confirmed window opening.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// HoldExpirationJob runs the expiry sweep on a fixed interval. Runs never
// overlap: a slow sweep delays the next tick.
type HoldExpirationJob struct {
	sweeper   Sweeper
	refresher Refresher
	metrics   *metrics.Metrics
	interval  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHoldExpirationJob(sweeper Sweeper, refresher Refresher, m *metrics.Metrics, interval time.Duration) *HoldExpirationJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HoldExpirationJob{
		sweeper:   sweeper,
		refresher: refresher,
		metrics:   m,
		interval:  interval,
	}
}

// Start begins the background job. The first sweep runs immediately.
func (j *HoldExpirationJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	logger.Get().Info("Starting hold expiration job", "check_interval", j.interval.String())

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				j.RunOnce(ctx)
			case <-ctx.Done():
				logger.Get().Info("Hold expiration job stopped")
				return
			}
		}
	}()
}

// Stop cancels the job and waits for a running sweep to finish.
func (j *HoldExpirationJob) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

// RunOnce performs one sweep followed by a refresh of derived slot states.
// Errors are logged; the next tick retries. The sweeper times itself, the
// job only times the refresh.
func (j *HoldExpirationJob) RunOnce(ctx context.Context) {
	expired, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		logger.Get().Error("Hold sweep finished with errors", "error", err, "expired", len(expired))
	} else if len(expired) > 0 {
		logger.Get().Info("Expired holds", "count", len(expired), "reservation_ids", expired)
	} else {
		logger.Get().Debug("No expired holds found")
	}

	if j.refresher == nil || ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.refresher.RefreshAll(ctx); err != nil {
		logger.Get().Error("Failed to refresh zone availability", "error", err)
	}
	j.metrics.ObserveRefresh(time.Since(start).Seconds())
}
