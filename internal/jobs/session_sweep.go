package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// StartSessionSweep periodically deletes expired sessions. Validation
// already expires lazily; the sweep keeps the table from accumulating rows
// for tokens that are never presented again.
func StartSessionSweep(ctx context.Context, log *zap.Logger, store SessionStore, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				deleted, err := store.DeleteExpiredSessions(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Error("session sweep failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					log.Info("session sweep", zap.Int64("deleted", deleted))
				}
			}
		}
	}()
}
