package daemon

import (
	"context"
	"log/slog"
	"time"
)

// AbandonedRunFailer fails provisioning runs that never reported an outcome.
type AbandonedRunFailer interface {
	FailAbandonedRuns(ctx context.Context, maxAge time.Duration) (int64, error)
}

// AbandonedRunsTask periodically marks provisioning runs still running after
// maxAge as failed.
func AbandonedRunsTask(logger *slog.Logger, runs AbandonedRunFailer, interval, maxAge time.Duration) DaemonFunc {
	return Every(logger, interval, func(ctx context.Context) error {
		n, err := runs.FailAbandonedRuns(ctx, maxAge)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.WarnContext(ctx, "Marked abandoned provisioning runs as failed", "count", n)
		}
		return nil
	})
}
