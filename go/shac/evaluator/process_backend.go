package evaluator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

// ProcessBackend runs evaluations in a pool of OS subprocesses instead
// of goroutines, for user evaluation code that is not safe to call
// concurrently in-process (spec.md section 5). Each worker subprocess
// is started once per batch, fed newline-delimited JSON requests on
// stdin, and must reply with one newline-delimited JSON response per
// request on stdout.
//
// The contract is identical to ThreadBackend's from the engine's point
// of view (SubmitBatch in, scores out); only the isolation boundary
// differs. Because a subprocess cannot invoke an in-process Go closure,
// ProcessBackend ignores the fn argument to SubmitBatch and instead
// drives Command/Args as the evaluation; construct it only when your
// evaluation logic lives in an external program speaking this protocol.
type ProcessBackend struct {
	// Command is the subprocess executable to launch, once per worker.
	Command string
	// Args are passed to every worker subprocess.
	Args []string
}

// processRequest is one line written to a worker's stdin.
type processRequest struct {
	WorkerID int         `json:"worker_id"`
	Sample   param.Sample `json:"sample"`
}

// processResponse is one line read from a worker's stdout.
type processResponse struct {
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

// SubmitBatch implements Backend.
func (p ProcessBackend) SubmitBatch(ctx context.Context, samples []param.Sample, _ EvalFunc, workers int) ([]float64, error) {
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
			if err := p.runWorker(ctx, workerID, samples[lo:hi], scores[lo:hi]); err != nil {
				errs[workerID] = err
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

func (p ProcessBackend) runWorker(ctx context.Context, workerID int, samples []param.Sample, out []float64) error {
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return shacerr.Wrap(shacerr.EvaluationFailed, "starting worker subprocess", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return shacerr.Wrap(shacerr.EvaluationFailed, "starting worker subprocess", err)
	}
	if err := cmd.Start(); err != nil {
		return shacerr.Wrap(shacerr.EvaluationFailed, "starting worker subprocess", err)
	}

	scanner := bufio.NewScanner(stdout)
	enc := json.NewEncoder(stdin)

	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			_ = cmd.Process.Kill()
			return shacerr.Wrap(shacerr.Cancelled, "evaluation cancelled", err)
		}
		if err := enc.Encode(processRequest{WorkerID: workerID, Sample: sample}); err != nil {
			_ = cmd.Process.Kill()
			return shacerr.Wrap(shacerr.EvaluationFailed, "writing request to worker subprocess", err)
		}
		if !scanner.Scan() {
			_ = cmd.Process.Kill()
			return shacerr.Wrap(shacerr.EvaluationFailed, "worker subprocess closed stdout early", scanner.Err())
		}
		var resp processResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			_ = cmd.Process.Kill()
			return shacerr.Wrap(shacerr.EvaluationFailed, "decoding worker subprocess response", err)
		}
		if resp.Error != "" {
			_ = cmd.Process.Kill()
			return shacerr.New(shacerr.EvaluationFailed, fmt.Sprintf("worker subprocess reported error: %s", resp.Error))
		}
		out[i] = resp.Score
	}

	_ = stdin.Close()
	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		return shacerr.Wrap(shacerr.EvaluationFailed, "worker subprocess exited with error", err)
	}
	return nil
}
