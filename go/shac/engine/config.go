package engine

import (
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/muchq/shac/go/clock"
	"github.com/muchq/shac/go/shac/classifier"
	"github.com/muchq/shac/go/shac/dataset"
	"github.com/muchq/shac/go/shac/evaluator"
	"github.com/muchq/shac/go/shac/shacerr"
)

// Config enumerates the engine's configuration options (spec.md section 4.6).
type Config struct {
	// TotalBudget is the total number of evaluations across all epochs.
	TotalBudget int
	// NumBatches is the number of samples generated and evaluated per
	// epoch; should divide TotalBudget evenly (BudgetMisconfigured is a
	// warning, not a fatal error, when it doesn't).
	NumBatches int
	// Objective selects whether lower or higher scores are preferred.
	Objective dataset.Objective
	// MaxClassifiers caps the cascade length.
	MaxClassifiers int
	// SkipCVChecks, EarlyStop, RelaxChecks are the classifier training
	// policy flags described in spec.md section 4.3.
	SkipCVChecks bool
	EarlyStop    bool
	RelaxChecks  bool
	// Seed is the engine-wide PRNG seed; all per-worker streams derive
	// from it deterministically.
	Seed int64
	// MaxClassifiersForPredict truncates the cascade used by Predict
	// when set (0 means "use the full cascade").
	MaxClassifiersForPredict int
	// GeneratorMaxAttemptsPerSlot is the hard per-slot rejection-sampling cap.
	GeneratorMaxAttemptsPerSlot int
	// GeneratorWorkers sizes the generator's worker pool; 0 means a single
	// worker. Generated samples depend on this value, since per-slot seeds
	// derive from the worker id.
	GeneratorWorkers int
	// GeneratorCacheSize bounds the generator's classifier-acceptance
	// memoization cache; 0 disables it.
	GeneratorCacheSize int
	// CheckpointDir is the directory Fit checkpoints to after every epoch.
	CheckpointDir string
	// Registry, if set, enables Prometheus instrumentation.
	Registry *prometheus.Registry
	// Logger receives structured epoch/cascade logging; defaults to slog.Default().
	Logger *slog.Logger
	// ScoreOnFailure, Backend, EvalTimeout configure the Evaluator.
	ScoreOnFailure *float64
	Backend        evaluator.Backend
	EvalTimeout    time.Duration
	// ClassifierFactory builds a fresh, untrained Classifier; defaults
	// to a small TreeEnsemble.
	ClassifierFactory classifier.Factory
	// Clock measures epoch wall-clock duration; defaults to
	// clock.NewSystemUtcClock(). Tests can inject clock.NewTestClock() for a
	// deterministic epoch_duration_seconds metric.
	Clock clock.Clock
}

// DefaultConfig returns a Config with the spec's documented defaults
// (max_classifiers=18, large generator attempt cap) and house-style
// constructors (go/resilience4g/rate_limit.DefaultRateLimitConfig,
// go/neuro's DefaultTrainingConfig) for everything else.
func DefaultConfig() Config {
	return Config{
		Objective:                   dataset.ObjectiveMin,
		MaxClassifiers:              18,
		GeneratorMaxAttemptsPerSlot: 100_000,
		CheckpointDir:               "shac",
		ClassifierFactory:           func() classifier.Classifier { return classifier.NewTreeEnsemble(25, 4) },
	}
}

func (c Config) validate() (Config, error) {
	if c.TotalBudget <= 0 {
		return c, shacerr.New(shacerr.SchemaMismatch, "total_budget must be > 0")
	}
	if c.NumBatches <= 0 {
		return c, shacerr.New(shacerr.SchemaMismatch, "num_batches must be > 0")
	}
	if c.Objective == "" {
		c.Objective = dataset.ObjectiveMin
	}
	if c.Objective != dataset.ObjectiveMin && c.Objective != dataset.ObjectiveMax {
		return c, shacerr.New(shacerr.SchemaMismatch, "objective must be \"min\" or \"max\"")
	}
	if c.MaxClassifiers < 0 {
		return c, shacerr.New(shacerr.SchemaMismatch, "max_classifiers must be >= 0")
	}
	if c.GeneratorMaxAttemptsPerSlot <= 0 {
		c.GeneratorMaxAttemptsPerSlot = 100_000
	}
	if c.CheckpointDir == "" {
		c.CheckpointDir = "shac"
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if c.ClassifierFactory == nil {
		c.ClassifierFactory = func() classifier.Classifier { return classifier.NewTreeEnsemble(25, 4) }
	}
	if c.Clock == nil {
		c.Clock = clock.NewSystemUtcClock()
	}
	return c, nil
}

// computeEpochPlan derives the epoch count and per-epoch batch size
// function, resolving the spec.md section 9 Open Question on rounding:
// floor division with a warning, except when total_budget < num_batches,
// which is a single truncated epoch (spec.md section 8, Boundary behaviors).
func computeEpochPlan(totalBudget, numBatches int, logger *slog.Logger) (numEpochs int, batchSize func(epoch int) int) {
	if totalBudget < numBatches {
		return 1, func(int) int { return totalBudget }
	}
	numEpochs = totalBudget / numBatches
	if totalBudget%numBatches != 0 {
		logger.Warn("num_batches does not divide total_budget evenly; rounding num_epochs down",
			"total_budget", totalBudget, "num_batches", numBatches, "num_epochs", numEpochs)
	}
	return numEpochs, func(int) int { return numBatches }
}
