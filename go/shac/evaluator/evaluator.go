// Package evaluator implements the SHAC parallel execution harness for
// the user's evaluation function, matching the thread/process backend
// strategy described in spec.md section 5: the engine is written
// against the Backend capability, never against a concrete pool type.
package evaluator

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

// EvalFunc is the user-supplied evaluation function's contract: called
// concurrently from multiple workers with a stable worker id for the
// duration of one epoch, returning a real score. User code owns its own
// thread-safety.
type EvalFunc func(ctx context.Context, workerID int, sample param.Sample) (float64, error)

// Backend is the parallel-execution strategy capability: submit a batch,
// and get back one score per sample (in input order) or an error. The
// engine depends only on this interface, never on a concrete pool.
type Backend interface {
	SubmitBatch(ctx context.Context, samples []param.Sample, fn EvalFunc, workers int) ([]float64, error)
}

// Config configures one Evaluator.
type Config struct {
	// NumBatches is the number of samples in one epoch; combined with
	// hardware parallelism, it bounds the worker pool size.
	NumBatches int
	// Backend selects the thread or process execution strategy;
	// defaults to ThreadBackend when nil.
	Backend Backend
	// ScoreOnFailure, if non-nil, is substituted for a sample whose
	// evaluation raises, instead of propagating EvaluationFailed.
	ScoreOnFailure *float64
	// Timeout bounds a single evaluation call; zero means no timeout.
	// A timed-out evaluation is treated identically to EvaluationFailed
	// (spec.md section 7), tagged EvaluationTimeout.
	Timeout time.Duration
}

// Evaluator runs the user function over one epoch's batch of samples.
type Evaluator struct {
	cfg Config
}

// New builds an Evaluator.
func New(cfg Config) *Evaluator {
	if cfg.Backend == nil {
		cfg.Backend = ThreadBackend{}
	}
	return &Evaluator{cfg: cfg}
}

// Workers computes min(num_batches, hardware_parallelism), honoring the
// SHAC_MAX_PARALLELISM environment override described in spec.md
// section 6.
func Workers(numBatches int) int {
	cap := runtime.NumCPU()
	if v := os.Getenv("SHAC_MAX_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < cap {
			cap = n
		}
	}
	if numBatches < cap {
		return numBatches
	}
	return cap
}

// Evaluate runs fn over samples and returns one score per sample, in
// input order (which is itself the deterministic worker/slot order the
// Generator produced). A user-function error is fatal for the epoch
// unless cfg.ScoreOnFailure is set.
func (e *Evaluator) Evaluate(ctx context.Context, samples []param.Sample, fn EvalFunc) ([]float64, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	workers := Workers(e.cfg.NumBatches)
	if workers <= 0 {
		workers = 1
	}

	wrapped := fn
	if e.cfg.Timeout > 0 {
		inner := wrapped
		timeout := e.cfg.Timeout
		wrapped = func(ctx context.Context, workerID int, sample param.Sample) (float64, error) {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			score, err := inner(callCtx, workerID, sample)
			if err != nil && callCtx.Err() == context.DeadlineExceeded {
				return 0, shacerr.Wrap(shacerr.EvaluationTimeout, "evaluation exceeded configured timeout", err)
			}
			return score, err
		}
	}
	if e.cfg.ScoreOnFailure != nil {
		sentinel := *e.cfg.ScoreOnFailure
		prev := wrapped
		wrapped = func(ctx context.Context, workerID int, sample param.Sample) (float64, error) {
			score, err := prev(ctx, workerID, sample)
			if err != nil {
				return sentinel, nil
			}
			return score, nil
		}
	}

	scores, err := e.cfg.Backend.SubmitBatch(ctx, samples, wrapped, workers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, shacerr.Wrap(shacerr.Cancelled, "evaluation cancelled", ctx.Err())
		}
		return nil, err
	}
	return scores, nil
}
