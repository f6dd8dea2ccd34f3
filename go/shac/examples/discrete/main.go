// Command discrete exercises spec.md section 8's second concrete
// scenario: a single five-valued discrete parameter, loss = |v - 3|,
// and reports how many of predict(20)'s samples land on the value 3.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/muchq/shac/go/shac/engine"
	"github.com/muchq/shac/go/shac/param"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	v, err := param.NewDiscrete("v", []any{int64(0), int64(1), int64(2), int64(3), int64(4)})
	if err != nil {
		logger.Error("building parameter v", "error", err)
		os.Exit(1)
	}
	space, err := param.NewSpace(v)
	if err != nil {
		logger.Error("building parameter space", "error", err)
		os.Exit(1)
	}

	cfg := engine.DefaultConfig()
	cfg.TotalBudget = 40
	cfg.NumBatches = 10
	cfg.Seed = 0
	cfg.Logger = logger
	cfg.CheckpointDir = "shac-discrete"

	eng, err := engine.New(space, cfg)
	if err != nil {
		logger.Error("constructing engine", "error", err)
		os.Exit(1)
	}

	evalFn := func(ctx context.Context, workerID int, s param.Sample) (float64, error) {
		val := s["v"].(int64)
		return math.Abs(float64(val - 3)), nil
	}

	if err := eng.Fit(context.Background(), evalFn); err != nil {
		logger.Error("fit failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fit complete", "epochs", eng.Epoch(), "cascade_len", eng.CascadeLen())

	samples, err := eng.Predict(context.Background(), 20, 0)
	if err != nil {
		logger.Error("predict failed", "error", err)
		os.Exit(1)
	}

	hits := 0
	for _, s := range samples {
		if s["v"].(int64) == 3 {
			hits++
		}
	}
	fmt.Printf("predicted %d samples, %d/%d (%.0f%%) at value 3\n", len(samples), hits, len(samples), 100*float64(hits)/float64(len(samples)))
}
