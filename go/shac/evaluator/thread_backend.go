package evaluator

import (
	"context"
	"sync"

	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

// ThreadBackend runs the evaluation function on a pool of goroutines,
// one per worker id, each owning a contiguous chunk of the batch (so
// Dataset append order matches (worker_id, slot_index), per spec.md
// section 5). It is the default Backend.
type ThreadBackend struct{}

// SubmitBatch implements Backend.
func (ThreadBackend) SubmitBatch(ctx context.Context, samples []param.Sample, fn EvalFunc, workers int) ([]float64, error) {
	n := len(samples)
	if workers > n {
		workers = n
	}
	if workers <= 0 {
		workers = 1
	}

	scores := make([]float64, n)
	errs := make([]error, workers)

	base, rem := n/workers, n%workers
	start := 0

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		count := base
		if w < rem {
			count++
		}
		lo, hi := start, start+count
		start = hi

		wg.Add(1)
		go func(workerID, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				select {
				case <-runCtx.Done():
					errs[workerID] = shacerr.Wrap(shacerr.Cancelled, "evaluation cancelled", runCtx.Err())
					return
				default:
				}
				score, err := fn(runCtx, workerID, samples[i])
				if err != nil {
					if _, alreadyTyped := err.(*shacerr.Error); alreadyTyped {
						errs[workerID] = err
					} else {
						errs[workerID] = shacerr.Wrap(shacerr.EvaluationFailed, "user evaluation function raised", err)
					}
					cancel()
					return
				}
				scores[i] = score
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}
