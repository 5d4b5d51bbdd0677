package task

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/halvardwex/ingestcore/config"
)

// BatchResult pairs one input message with its processed Task (or the
// error Process returned for it).
type BatchResult struct {
	Index int
	Task  *Task
	Err   error
}

// RunBatch processes every message in raws concurrently, one Task and
// one Arena per goroutine. This is the only place in the package that
// spawns a goroutine; a single Process call never does, since Process
// is strictly single-threaded per task. concurrency bounds how many
// messages are in flight at once; a value <= 0 means unbounded.
func RunBatch(ctx context.Context, raws [][]byte, cfg *config.Config, concurrency int, opts ...Option) ([]BatchResult, error) {
	results := make([]BatchResult, len(raws))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = BatchResult{Index: i, Err: ctx.Err()}
				return nil
			default:
			}
			t, err := Process(raw, cfg, opts...)
			results[i] = BatchResult{Index: i, Task: t, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
