// Package engine implements the SHAC orchestrator: the epoch state
// machine described in spec.md section 4.6 that drives the generator,
// evaluator, and classifier cascade to a budgeted, checkpointed
// optimization run.
package engine

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/google/uuid"

	"github.com/muchq/shac/go/shac/checkpoint"
	"github.com/muchq/shac/go/shac/classifier"
	"github.com/muchq/shac/go/shac/dataset"
	"github.com/muchq/shac/go/shac/evaluator"
	"github.com/muchq/shac/go/shac/generator"
	"github.com/muchq/shac/go/shac/metrics"
	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

// State is one stage of the per-epoch state machine (spec.md section 4.6).
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateEvaluating
	StateLabeling
	StateTraining
	StatePersisting
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateGenerating:
		return "Generating"
	case StateEvaluating:
		return "Evaluating"
	case StateLabeling:
		return "Labeling"
	case StateTraining:
		return "Training"
	case StatePersisting:
		return "Persisting"
	case StateHalted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// Engine drives the generate/evaluate/label/train/persist loop over a
// fixed parameter space, up to its configured budget.
type Engine struct {
	cfg         Config
	space       *param.Space
	dataset     *dataset.Dataset
	cascade     *generator.Cascade
	gen         *generator.Generator
	epoch       int
	numEpochs   int
	batchSizeFn func(epoch int) int
	runID       string
	metrics     *metrics.Metrics
	state       State
}

// New constructs a fresh Engine over space. Use Restore to resume from a
// checkpoint instead.
func New(space *param.Space, cfg Config) (*Engine, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	numEpochs, batchSizeFn := computeEpochPlan(cfg.TotalBudget, cfg.NumBatches, cfg.Logger)

	cascade := generator.NewCascade()
	gen, err := generator.New(space, cascade, generator.Config{
		Workers:            cfg.GeneratorWorkers,
		MaxAttemptsPerSlot: cfg.GeneratorMaxAttemptsPerSlot,
		EngineSeed:         cfg.Seed,
		CacheSize:          cfg.GeneratorCacheSize,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		space:       space,
		dataset:     dataset.New(space),
		cascade:     cascade,
		gen:         gen,
		numEpochs:   numEpochs,
		batchSizeFn: batchSizeFn,
		runID:       uuid.NewString(),
		metrics:     metrics.New(cfg.Registry),
		state:       StateIdle,
	}, nil
}

// Restore rebuilds an Engine from a checkpoint directory, continuing from
// the epoch recorded in meta.json. overrides supplies the fields meta.json
// does not carry (Registry, Logger, Backend, timeouts, generator sizing);
// the budget, objective, cap, seed, and policy flags come from the
// checkpoint itself, per spec.md section 6's restore contract.
func Restore(dir string, overrides Config) (*Engine, error) {
	loaded, err := checkpoint.Load(dir)
	if err != nil {
		return nil, err
	}

	cfg := overrides
	cfg.TotalBudget = loaded.Meta.TotalBudget
	cfg.NumBatches = loaded.Meta.NumBatches
	cfg.Objective = dataset.Objective(loaded.Meta.Objective)
	cfg.MaxClassifiers = loaded.Meta.MaxClassifiers
	cfg.Seed = loaded.Meta.Seed
	cfg.SkipCVChecks = loaded.Meta.Flags.SkipCVChecks
	cfg.EarlyStop = loaded.Meta.Flags.EarlyStop
	cfg.RelaxChecks = loaded.Meta.Flags.RelaxChecks
	cfg.CheckpointDir = dir

	cfg, err = cfg.validate()
	if err != nil {
		return nil, err
	}
	numEpochs, batchSizeFn := computeEpochPlan(cfg.TotalBudget, cfg.NumBatches, cfg.Logger)

	cascade := generator.NewCascade()
	for _, cls := range loaded.Cascade {
		cascade.Append(cls)
	}
	gen, err := generator.New(loaded.Space, cascade, generator.Config{
		Workers:            cfg.GeneratorWorkers,
		MaxAttemptsPerSlot: cfg.GeneratorMaxAttemptsPerSlot,
		EngineSeed:         cfg.Seed,
		CacheSize:          cfg.GeneratorCacheSize,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		space:       loaded.Space,
		dataset:     loaded.Dataset,
		cascade:     cascade,
		gen:         gen,
		epoch:       loaded.Meta.Epoch,
		numEpochs:   numEpochs,
		batchSizeFn: batchSizeFn,
		runID:       loaded.Meta.RunID,
		metrics:     metrics.New(cfg.Registry),
		state:       StateIdle,
	}, nil
}

// Epoch returns the number of epochs already completed.
func (e *Engine) Epoch() int { return e.epoch }

// State reports the engine's current position in the epoch state machine.
func (e *Engine) State() State { return e.state }

// CascadeLen returns the current classifier cascade length.
func (e *Engine) CascadeLen() int { return e.cascade.Len() }

// Dataset exposes the accumulated (sample, score) records.
func (e *Engine) Dataset() *dataset.Dataset { return e.dataset }

// Fit runs the generate/evaluate/label/train/persist loop until the
// configured budget is exhausted, the context is cancelled, or a fatal
// error halts the run. Cancellation is cooperative: callers drive it by
// cancelling ctx (e.g. via context.WithCancel), and Fit persists the last
// fully completed epoch before returning.
func (e *Engine) Fit(ctx context.Context, evalFn evaluator.EvalFunc) error {
	for e.epoch < e.numEpochs {
		if err := ctx.Err(); err != nil {
			e.state = StateHalted
			if perr := e.persist(); perr != nil {
				return perr
			}
			return shacerr.Wrap(shacerr.Cancelled, "fit cancelled before epoch start", err)
		}

		start := e.cfg.Clock.Now()
		batchSize := e.batchSizeFn(e.epoch)

		e.state = StateGenerating
		genResult, err := e.gen.Generate(ctx, e.epoch, batchSize, e.cfg.MaxClassifiers)
		if err != nil {
			e.state = StateHalted
			e.cfg.Logger.Error("generation halted", "epoch", e.epoch, "error", err)
			if perr := e.persist(); perr != nil {
				return perr
			}
			return err
		}
		e.metrics.AddGeneratorAttempts(genResult.Attempts)
		e.cfg.Logger.Debug("generation complete",
			"epoch", e.epoch, "attempts", genResult.Attempts, "batch_size", batchSize,
			"expected_attempts_per_sample", math.Exp2(float64(min(e.cascade.Len(), e.cfg.MaxClassifiers))))

		e.state = StateEvaluating
		ev := evaluator.New(evaluator.Config{
			NumBatches:     batchSize,
			Backend:        e.cfg.Backend,
			ScoreOnFailure: e.cfg.ScoreOnFailure,
			Timeout:        e.cfg.EvalTimeout,
		})
		scores, err := ev.Evaluate(ctx, genResult.Samples, evalFn)
		if err != nil {
			e.state = StateHalted
			e.cfg.Logger.Error("evaluation halted", "epoch", e.epoch, "error", err)
			if perr := e.persist(); perr != nil {
				return perr
			}
			return err
		}

		e.state = StateLabeling
		threshold, err := dataset.Threshold(scores, 0.5, e.cfg.Objective)
		if err != nil {
			e.state = StateHalted
			return shacerr.Wrap(shacerr.SchemaMismatch, "computing epoch acceptance threshold", err)
		}
		labels := dataset.Labels(scores, threshold, e.cfg.Objective)
		accepted := 0
		for _, l := range labels {
			if l {
				accepted++
			}
		}
		e.metrics.SetAcceptanceRate(float64(accepted) / float64(len(labels)))

		for i, s := range genResult.Samples {
			if err := e.dataset.Append(s, scores[i]); err != nil {
				e.state = StateHalted
				return shacerr.Wrap(shacerr.SchemaMismatch, "appending generated sample to dataset", err)
			}
		}

		e.state = StateTraining
		attemptedTraining := e.cascade.Len() < e.cfg.MaxClassifiers
		added := false
		if attemptedTraining {
			added, err = e.trainCandidate(genResult.Samples, labels)
			if err != nil {
				e.state = StateHalted
				if perr := e.persist(); perr != nil {
					return perr
				}
				return err
			}
		}

		for i, s := range genResult.Samples {
			if err := e.dataset.Append(s, scores[i]); err != nil {
				e.state = StateHalted
				return shacerr.Wrap(shacerr.SchemaMismatch, "appending generated sample to dataset", err)
			}
		}
		e.metrics.SetCascadeLength(e.cascade.Len())

		e.state = StatePersisting
		e.epoch++
		if err := e.persist(); err != nil {
			return err
		}
		e.metrics.ObserveEpochDuration(e.cfg.Clock.Now().Sub(start).Seconds())
		e.cfg.Logger.Info("epoch complete",
			"epoch", e.epoch, "accepted", accepted, "batch_size", batchSize,
			"cascade_len", e.cascade.Len(), "threshold", threshold)
		e.state = StateIdle

		if attemptedTraining && !added && e.cfg.EarlyStop {
			e.cfg.Logger.Info("early stop: classifier failed to be added", "epoch", e.epoch)
			break
		}
	}
	return nil
}

// trainCandidate trains one candidate classifier on the epoch's batch and
// decides whether to append it to the cascade. A candidate is accepted
// only if it trains successfully under the CV policy (spec.md section
// 4.3) and passes the cascade-acceptance validity gate: running the
// cascade as it would be with the candidate appended against this
// epoch's accepted subset must still label at least one sample "accept",
// unless relax_checks is set (spec.md section 9's cascade-acceptance
// Open Question, resolved in SPEC_FULL.md section E).
func (e *Engine) trainCandidate(samples []param.Sample, labels []bool) (bool, error) {
	X := make([][]float64, len(samples))
	for i, s := range samples {
		vec, err := e.space.Encode(s)
		if err != nil {
			return false, shacerr.Wrap(shacerr.SchemaMismatch, "encoding batch for classifier training", err)
		}
		X[i] = vec
	}

	result, err := classifier.TrainWithPolicy(e.cfg.ClassifierFactory, X, labels, trainSeed(e.cfg.Seed, e.epoch), e.cfg.SkipCVChecks)
	if err != nil {
		return false, shacerr.Wrap(shacerr.ClassifierUntrainable, "training candidate classifier", err)
	}
	if !result.Trained {
		e.cfg.Logger.Info("classifier not added this epoch: batch untrainable under CV policy", "epoch", e.epoch)
		return false, nil
	}

	var acceptedVecs [][]float64
	for i, l := range labels {
		if l {
			acceptedVecs = append(acceptedVecs, X[i])
		}
	}
	trial := append(e.cascade.Snapshot(-1), result.Classifier)
	survivors := 0
	for _, vec := range acceptedVecs {
		if generator.Accepts(trial, vec) {
			survivors++
		}
	}
	if survivors == 0 && !e.cfg.RelaxChecks {
		e.cfg.Logger.Info("candidate classifier rejected by cascade-acceptance gate", "epoch", e.epoch)
		return false, nil
	}

	e.cascade.Append(result.Classifier)
	e.cfg.Logger.Info("classifier appended to cascade", "epoch", e.epoch, "cascade_len", e.cascade.Len(), "cv_score", result.CVScore)
	return true, nil
}

// Predict draws n samples that pass the current cascade (or its first
// maxClassifiers entries, if maxClassifiers > 0) without mutating the
// dataset or cascade: repeated calls against an unchanged engine are
// deterministic given the engine's seed.
func (e *Engine) Predict(ctx context.Context, n, maxClassifiers int) ([]param.Sample, error) {
	limit := maxClassifiers
	if limit <= 0 {
		limit = e.cfg.MaxClassifiersForPredict
	}
	if limit <= 0 {
		limit = -1
	}
	result, err := e.gen.Generate(ctx, e.epoch, n, limit)
	if err != nil {
		return nil, err
	}
	return result.Samples, nil
}

// Save writes the engine's current state to dir as a checkpoint.
func (e *Engine) Save(dir string) error {
	meta := checkpoint.Meta{
		RunID:          e.runID,
		Epoch:          e.epoch,
		Objective:      string(e.cfg.Objective),
		TotalBudget:    e.cfg.TotalBudget,
		NumBatches:     e.cfg.NumBatches,
		MaxClassifiers: e.cfg.MaxClassifiers,
		Seed:           e.cfg.Seed,
		Flags: checkpoint.Flags{
			SkipCVChecks: e.cfg.SkipCVChecks,
			EarlyStop:    e.cfg.EarlyStop,
			RelaxChecks:  e.cfg.RelaxChecks,
		},
	}
	return checkpoint.Save(dir, meta, e.space, e.dataset, e.cascade.Snapshot(-1))
}

func (e *Engine) persist() error {
	if err := e.Save(e.cfg.CheckpointDir); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "checkpointing engine state", err)
	}
	return nil
}

// trainSeed derives a classifier training seed from the engine seed and
// epoch number, the same FNV-combine technique the generator uses for
// per-worker sample streams (go/shac/generator/seed.go), but in its own
// namespace so classifier and sample streams never collide.
func trainSeed(engineSeed int64, epoch int) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(engineSeed))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(epoch)))
	h.Write(buf[:])
	return int64(h.Sum64())
}
