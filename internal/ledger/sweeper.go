package ledger

import (
	"context"
	"log/slog"
	"time"

	"cddflow/pkg/requestcontext"
)

// Sweeper resolves ledger keys abandoned between Begin and Commit/Abort.
// A caller that acquires a key and then dies leaves it PENDING forever,
// which would permanently block retries for that review; the sweeper fails
// such keys once they exceed the pending timeout.
type Sweeper struct {
	store    Store
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper constructs a sweeper. timeout is how long a record may stay
// PENDING before it is considered abandoned; interval is how often to scan.
func NewSweeper(store Store, timeout, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a ticker until ctx is cancelled. Sweep failures are logged
// and retried on the next tick rather than stopping the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resolved, err := s.SweepOnce(ctx)
			if err != nil {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "ledger sweep failed", "error", err)
				}
				continue
			}
			if resolved > 0 && s.logger != nil {
				s.logger.InfoContext(ctx, "resolved stale pending ledger keys", "count", resolved)
			}
		}
	}
}

// SweepOnce performs a single sweep pass. The clock comes from the context
// so tests can pin it.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-s.timeout)
	return s.store.ResolveStale(ctx, cutoff)
}
