package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchq/shac/go/shac/dataset"
	"github.com/muchq/shac/go/shac/param"
)

func quadraticSpace(t *testing.T) *param.Space {
	t.Helper()
	x, err := param.NewUniformContinuous("x", -1, 1)
	require.NoError(t, err)
	space, err := param.NewSpace(x)
	require.NoError(t, err)
	return space
}

func quadraticEval(ctx context.Context, workerID int, s param.Sample) (float64, error) {
	x := s["x"].(float64)
	return (x - 0.25) * (x - 0.25), nil
}

func TestFitHandlesTruncatedEpochSmallerThanKFold(t *testing.T) {
	// total_budget=4 < num_batches=10 is the spec's "one truncated epoch"
	// boundary case (spec.md section 8); with the default SkipCVChecks=false
	// the batch is also smaller than the classifier's k=5 cross-validation
	// fold count, which must be treated as an untrainable-this-epoch skip,
	// not a fatal error that halts Fit.
	dir := filepath.Join(t.TempDir(), "shac")
	cfg := DefaultConfig()
	cfg.TotalBudget = 4
	cfg.NumBatches = 10
	cfg.Seed = 1
	cfg.CheckpointDir = dir

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)

	require.NoError(t, e.Fit(context.Background(), quadraticEval))
	assert.Equal(t, 4, e.Dataset().Size())
	assert.Equal(t, 1, e.Epoch())
	assert.Equal(t, 0, e.CascadeLen())
}

func TestFitConsumesFullBudgetWhenEvenlyDivided(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	cfg := DefaultConfig()
	cfg.TotalBudget = 40
	cfg.NumBatches = 10
	cfg.MaxClassifiers = 3
	cfg.Seed = 7
	cfg.CheckpointDir = dir

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)

	require.NoError(t, e.Fit(context.Background(), quadraticEval))
	assert.Equal(t, 40, e.Dataset().Size())
	assert.Equal(t, 4, e.Epoch())
	assert.LessOrEqual(t, e.CascadeLen(), 3)
}

func TestFitIsDeterministicGivenSeed(t *testing.T) {
	mkEngine := func(dir string) *Engine {
		cfg := DefaultConfig()
		cfg.TotalBudget = 30
		cfg.NumBatches = 10
		cfg.MaxClassifiers = 2
		cfg.Seed = 99
		cfg.CheckpointDir = dir
		e, err := New(quadraticSpace(t), cfg)
		require.NoError(t, err)
		return e
	}

	e1 := mkEngine(filepath.Join(t.TempDir(), "shac"))
	require.NoError(t, e1.Fit(context.Background(), quadraticEval))

	e2 := mkEngine(filepath.Join(t.TempDir(), "shac"))
	require.NoError(t, e2.Fit(context.Background(), quadraticEval))

	assert.Equal(t, e1.Dataset().Scores(), e2.Dataset().Scores())
	assert.Equal(t, e1.CascadeLen(), e2.CascadeLen())
}

func TestMaxClassifiersCapsCascadeGrowth(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	cfg := DefaultConfig()
	cfg.TotalBudget = 100
	cfg.NumBatches = 10
	cfg.MaxClassifiers = 2
	cfg.Seed = 3
	cfg.CheckpointDir = dir

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), quadraticEval))

	assert.Equal(t, 10, e.Epoch())
	assert.LessOrEqual(t, e.CascadeLen(), 2)
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	cfg := DefaultConfig()
	cfg.TotalBudget = 50
	cfg.NumBatches = 10
	cfg.MaxClassifiers = 3
	cfg.Seed = 11
	cfg.CheckpointDir = dir

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), quadraticEval))

	restored, err := Restore(dir, Config{})
	require.NoError(t, err)
	assert.Equal(t, e.Epoch(), restored.Epoch())
	assert.Equal(t, e.Dataset().Size(), restored.Dataset().Size())
	assert.Equal(t, e.CascadeLen(), restored.CascadeLen())
}

func TestFitHaltsAndPersistsOnCancellation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	cfg := DefaultConfig()
	cfg.TotalBudget = 50
	cfg.NumBatches = 10
	cfg.Seed = 5
	cfg.CheckpointDir = dir

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = e.Fit(ctx, quadraticEval)
	assert.Error(t, err)
	assert.Equal(t, 0, e.Epoch())

	loaded, lerr := Restore(dir, Config{})
	require.NoError(t, lerr)
	assert.Equal(t, 0, loaded.Epoch())
}

func TestPredictIsPure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalBudget = 30
	cfg.NumBatches = 10
	cfg.Seed = 13
	cfg.CheckpointDir = filepath.Join(t.TempDir(), "shac")

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)

	first, err := e.Predict(context.Background(), 5, 0)
	require.NoError(t, err)
	second, err := e.Predict(context.Background(), 5, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, e.Dataset().Size())
	assert.Equal(t, 0, e.CascadeLen())
}

func TestObjectiveMaxAccepted(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	cfg := DefaultConfig()
	cfg.TotalBudget = 20
	cfg.NumBatches = 10
	cfg.Objective = dataset.ObjectiveMax
	cfg.Seed = 21
	cfg.CheckpointDir = dir

	e, err := New(quadraticSpace(t), cfg)
	require.NoError(t, err)
	require.NoError(t, e.Fit(context.Background(), quadraticEval))
	assert.Equal(t, 20, e.Dataset().Size())
}
