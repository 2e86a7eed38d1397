package azdevops

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// Fixed fan-out batch sizes. These, together with the dashboard's project
// cap, are the only backpressure applied to the remote service.
const (
	descriptorBatchSize = 20 // per-descriptor user detail lookups
	repoPRBatchSize     = 10 // per-repository pull request listings
	userPRBatchSize     = 5  // per-project pull-request-by-creator queries (heavier query)
)

// forEachBatch processes items in fixed-size batches: batches run
// sequentially, items within a batch concurrently. Each result is slotted
// by its item's input index, so output order matches input order no matter
// how responses interleave. The first worker error cancels the running
// batch and aborts the fan-out; workers that must not abort it wrap their
// failures with softFail.
func forEachBatch[T, R any](ctx context.Context, items []T, batchSize int, worker func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := worker(gctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// softFail is the single place that decides which fan-out failures abort
// and which are absorbed: auth failures (and a missing credential) always
// propagate so the dashboard can prompt for re-authentication; everything
// else is logged and reduced to a no-contribution nil. Callers use it as
//
//	if err := softFail(err, "msg", "key", val); err != nil { return zero, err }
func softFail(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	if driven.IsAuthFailure(err) {
		return err
	}
	slog.Warn(msg, append(args, "error", err)...)
	return nil
}
