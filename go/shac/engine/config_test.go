package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEpochPlanEvenDivision(t *testing.T) {
	numEpochs, batchSize := computeEpochPlan(100, 10, slog.Default())
	assert.Equal(t, 10, numEpochs)
	assert.Equal(t, 10, batchSize(0))
}

func TestComputeEpochPlanRoundsDown(t *testing.T) {
	numEpochs, batchSize := computeEpochPlan(105, 10, slog.Default())
	assert.Equal(t, 10, numEpochs)
	assert.Equal(t, 10, batchSize(3))
}

func TestComputeEpochPlanTruncatedSingleEpoch(t *testing.T) {
	numEpochs, batchSize := computeEpochPlan(4, 10, slog.Default())
	assert.Equal(t, 1, numEpochs)
	assert.Equal(t, 4, batchSize(0))
}

func TestConfigValidateRejectsBadBudget(t *testing.T) {
	_, err := Config{TotalBudget: 0, NumBatches: 10}.validate()
	assert.Error(t, err)

	_, err = Config{TotalBudget: 10, NumBatches: 0}.validate()
	assert.Error(t, err)
}

func TestConfigValidateFillsDefaults(t *testing.T) {
	cfg, err := Config{TotalBudget: 10, NumBatches: 5}.validate()
	assert.NoError(t, err)
	assert.Equal(t, "shac", cfg.CheckpointDir)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.ClassifierFactory)
	assert.Equal(t, 100_000, cfg.GeneratorMaxAttemptsPerSlot)
}
