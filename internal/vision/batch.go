package vision

import (
	"context"
	"sync"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

// BatchSize returns the number of documents per batch:
// max(1, min(configured, total/workers)).
func BatchSize(total, configured, workers int) int {
	if workers < 1 {
		workers = 1
	}
	size := total / workers
	if configured < size {
		size = configured
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Result is the outcome for one document of a batch run
type Result struct {
	Document    *domain.Document
	Recognition *domain.Recognition
	Err         error
}

// ProgressFunc is called after each document completes with the number of
// documents done so far and the total.
type ProgressFunc func(done, total int)

// ProcessAll recognizes documents batch by batch in submission order. Within
// a batch at most Workers documents run at once. Per-document failures are
// reported in the results; only context cancellation stops the run.
func (a *Adapter) ProcessAll(ctx context.Context, docs []*domain.Document, onDone ProgressFunc) ([]Result, error) {
	results := make([]Result, len(docs))
	size := BatchSize(len(docs), a.batchSize, a.workers)

	var (
		mu   sync.Mutex
		done int
	)
	for start := 0; start < len(docs); start += size {
		if err := ctx.Err(); err != nil {
			return results[:start], err
		}
		end := min(start+size, len(docs))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				rec, err := a.Process(gctx, docs[i])
				results[i] = Result{Document: docs[i], Recognition: rec, Err: err}
				if gctx.Err() != nil {
					return gctx.Err()
				}

				mu.Lock()
				defer mu.Unlock()
				done++
				if onDone != nil {
					onDone(done, len(docs))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results[:start], err
		}

		a.logger.Debug("batch processed", "batch_start", start, "batch_end", end, "total", len(docs))
	}
	return results, nil
}
