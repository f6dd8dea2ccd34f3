// Command quadratic exercises the engine's full public contract against
// spec.md section 8's first concrete scenario: search for (x, y) such
// that f(x, y) = 2x - y approaches the target value 4.0, mirroring the
// house's example mains (go/neuro/examples/mnist_production.go) that
// build a config, run the pipeline, and print a sanity report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/muchq/shac/go/shac/engine"
	"github.com/muchq/shac/go/shac/param"
)

const target = 4.0

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	x, err := param.NewUniformContinuous("x", -5, 5)
	if err != nil {
		logger.Error("building parameter x", "error", err)
		os.Exit(1)
	}
	y, err := param.NewUniformContinuous("y", -2, 2)
	if err != nil {
		logger.Error("building parameter y", "error", err)
		os.Exit(1)
	}
	space, err := param.NewSpace(x, y)
	if err != nil {
		logger.Error("building parameter space", "error", err)
		os.Exit(1)
	}

	cfg := engine.DefaultConfig()
	cfg.TotalBudget = 100
	cfg.NumBatches = 10
	cfg.MaxClassifiers = 18
	cfg.SkipCVChecks = true
	cfg.Seed = 0
	cfg.Logger = logger
	cfg.CheckpointDir = "shac-quadratic"

	eng, err := engine.New(space, cfg)
	if err != nil {
		logger.Error("constructing engine", "error", err)
		os.Exit(1)
	}

	evalFn := func(ctx context.Context, workerID int, s param.Sample) (float64, error) {
		fx := 2*s["x"].(float64) - s["y"].(float64)
		return (fx - target) * (fx - target), nil
	}

	if err := eng.Fit(context.Background(), evalFn); err != nil {
		logger.Error("fit failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fit complete", "epochs", eng.Epoch(), "cascade_len", eng.CascadeLen(), "dataset_size", eng.Dataset().Size())

	samples, err := eng.Predict(context.Background(), 20, 0)
	if err != nil {
		logger.Error("predict failed", "error", err)
		os.Exit(1)
	}

	sumSquaredError := 0.0
	for _, s := range samples {
		fx := 2*s["x"].(float64) - s["y"].(float64)
		diff := fx - target
		sumSquaredError += diff * diff
	}
	mse := sumSquaredError / float64(len(samples))
	fmt.Printf("predicted %d samples, mean squared error to target %.2f: %.4f\n", len(samples), target, mse)
}
